package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"qbank/internal/models"
	"qbank/internal/utility"
)

// mcqImportOptions is the option arity required for imported MCQs.
const mcqImportOptions = 4

// mcqItem mirrors models.MCQ but accepts correctAnswer as a number or a string.
type mcqItem struct {
	models.MCQ
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
}

func prepareMCQ(raw json.RawMessage, _ map[string]string) (*models.MCQ, error) {
	var item mcqItem
	if err := decodeItem(raw, &item); err != nil {
		return nil, err
	}
	q := item.MCQ
	if len(q.Options) != mcqImportOptions {
		return nil, fmt.Errorf("options must have exactly %d entries", mcqImportOptions)
	}
	idx, err := answerIndex(item.CorrectAnswer, q.Options)
	if err != nil {
		return nil, err
	}
	q.CorrectAnswer = idx
	return &q, nil
}

// answerIndex accepts an index, a numeric string, a letter A-D or the exact
// option text.
func answerIndex(raw json.RawMessage, options []string) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("correctAnswer is required")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n != float64(int(n)) {
			return 0, errors.New("correctAnswer must be a whole number")
		}
		return checkIndex(int(n), options)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, errors.New("correctAnswer must be a number or a string")
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return checkIndex(i, options)
	}
	if len(s) == 1 {
		if c := strings.ToUpper(s)[0]; c >= 'A' && c < 'A'+byte(len(options)) {
			return int(c - 'A'), nil
		}
	}
	for i, opt := range options {
		if opt == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("correctAnswer %q does not match any option", s)
}

func checkIndex(i int, options []string) (int, error) {
	if i < 0 || i >= len(options) {
		return 0, fmt.Errorf("correctAnswer %d is out of range", i)
	}
	return i, nil
}

func checkMCQ(q *models.MCQ) error {
	if q.CorrectAnswer >= len(q.Options) {
		return invalidf("correctAnswer %d is out of range", q.CorrectAnswer)
	}
	return nil
}

func prepareFillBlank(raw json.RawMessage, _ map[string]string) (*models.FillBlank, error) {
	var q models.FillBlank
	if err := decodeItem(raw, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func prepareDescriptive(raw json.RawMessage, refImages map[string]string) (*models.Descriptive, error) {
	var q models.Descriptive
	if err := decodeItem(raw, &q); err != nil {
		return nil, err
	}
	ResolveDiagramRefs(&q, refImages)
	return &q, nil
}

// ResolveDiagramRefs replaces every diagram ref with the matching uploaded URL
// and drops the ref. An unmatched ref leaves an empty content. It returns the
// refs that matched nothing.
func ResolveDiagramRefs(q *models.Descriptive, refImages map[string]string) []string {
	var unresolved []string
	for i := range q.Answer {
		block := &q.Answer[i]
		if block.Ref == "" {
			continue
		}
		if block.Type == models.BlockDiagram {
			if url, ok := utility.FindMatchingURL(block.Ref, refImages); ok {
				block.Content = url
			} else {
				block.Content = ""
				unresolved = append(unresolved, block.Ref)
			}
		}
		block.Ref = ""
	}
	return unresolved
}

func checkDescriptive(q *models.Descriptive) error {
	for i, block := range q.Answer {
		if block.Type == models.BlockList && len(block.Items) == 0 {
			return invalidf("answer[%d].items is required for list blocks", i)
		}
	}
	return nil
}

func decodeItem(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errors.New("item must be a JSON object")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("malformed item: %v", err)
	}
	return nil
}

// UnwrapItems accepts a bare JSON array or an object wrapping one. Recognised
// keys are "items", "questions", the kind's Unit field, collection and slug;
// an object with exactly one array-valued key is also accepted.
func UnwrapItems(body []byte, kind models.QuestionKind) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, invalidf("empty payload")
	}

	var items []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, invalidf("malformed JSON array: %v", err)
		}
		return items, nil
	case '{':
	default:
		return nil, invalidf("payload must be a JSON array or object")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, invalidf("malformed JSON object: %v", err)
	}
	for _, key := range []string{"items", "questions", kind.UnitField(), kind.Collection(), kind.Slug()} {
		if v, ok := envelope[key]; ok {
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, invalidf("%q must be an array", key)
			}
			return items, nil
		}
	}

	var arrays []json.RawMessage
	for _, v := range envelope {
		if t := bytes.TrimSpace(v); len(t) > 0 && t[0] == '[' {
			arrays = append(arrays, t)
		}
	}
	if len(arrays) != 1 {
		return nil, invalidf("payload object must hold one array of %s items", kind.Slug())
	}
	if err := json.Unmarshal(arrays[0], &items); err != nil {
		return nil, invalidf("malformed JSON array: %v", err)
	}
	return items, nil
}
