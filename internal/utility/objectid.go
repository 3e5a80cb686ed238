package utility

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidID reports whether s is a well-formed document id (24 hex characters).
func IsValidID(s string) bool {
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

// ParseID returns the ObjectID for s and whether it was well formed.
func ParseID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// ParseIDs keeps the well-formed ids in input order, dropping malformed ones and
// duplicates.
func ParseIDs(raw []string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(raw))
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, ok := ParseID(s)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
