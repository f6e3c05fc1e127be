package rpc

import (
	"errors"
	"fmt"
	"math"

	"translation-dispatch/internal/domain"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformed is returned when a Struct does not have the expected shape.
var ErrMalformed = errors.New("malformed message")

// EncodeTask converts a task to its wire form.
func EncodeTask(task *domain.Task) (*structpb.Struct, error) {
	sentences := make([]any, len(task.Sentences))
	for i, s := range task.Sentences {
		sentences[i] = map[string]any{"id": s.ID, "text": s.Text}
	}
	return structpb.NewStruct(map[string]any{
		"id":        task.ID,
		"task_id":   task.TaskID,
		"sentences": sentences,
	})
}

// DecodeTask converts the wire form back to a task. An absent sentence list
// decodes to an empty batch; rejecting it is up to the caller.
func DecodeTask(msg *structpb.Struct) (*domain.Task, error) {
	fields := msg.GetFields()
	taskID, err := integer(fields["task_id"], "task_id")
	if err != nil {
		return nil, err
	}

	values := fields["sentences"].GetListValue().GetValues()
	sentences := make(domain.Sentences, 0, len(values))
	for i, v := range values {
		sf := v.GetStructValue().GetFields()
		if sf == nil {
			return nil, fmt.Errorf("%w: sentence %d is not an object", ErrMalformed, i)
		}
		id, err := integer(sf["id"], "sentence id")
		if err != nil {
			return nil, err
		}
		sentences = append(sentences, domain.Sentence{ID: int(id), Text: sf["text"].GetStringValue()})
	}

	return &domain.Task{
		ID:        fields["id"].GetStringValue(),
		TaskID:    taskID,
		Sentences: sentences,
	}, nil
}

// EncodeHistories converts decode results to their wire form.
func EncodeHistories(histories domain.Histories) (*structpb.Struct, error) {
	list := make([]any, len(histories))
	for i, h := range histories {
		words := make([]any, len(h.Words))
		for j, w := range h.Words {
			words[j] = w
		}
		list[i] = map[string]any{
			"sentence_id": h.SentenceID,
			"words":       words,
			"translation": h.Translation,
			"score":       h.Score,
			"model_id":    h.ModelID,
		}
	}
	return structpb.NewStruct(map[string]any{"histories": list})
}

// DecodeHistories converts the wire form back to histories.
func DecodeHistories(msg *structpb.Struct) (domain.Histories, error) {
	values := msg.GetFields()["histories"].GetListValue().GetValues()
	histories := make(domain.Histories, 0, len(values))
	for i, v := range values {
		hf := v.GetStructValue().GetFields()
		if hf == nil {
			return nil, fmt.Errorf("%w: history %d is not an object", ErrMalformed, i)
		}
		sentenceID, err := integer(hf["sentence_id"], "sentence_id")
		if err != nil {
			return nil, err
		}
		modelID, err := integer(hf["model_id"], "model_id")
		if err != nil {
			return nil, err
		}
		wordValues := hf["words"].GetListValue().GetValues()
		words := make([]string, len(wordValues))
		for j, w := range wordValues {
			words[j] = w.GetStringValue()
		}
		histories = append(histories, domain.History{
			SentenceID:  int(sentenceID),
			Words:       words,
			Translation: hf["translation"].GetStringValue(),
			Score:       hf["score"].GetNumberValue(),
			ModelID:     modelID,
		})
	}
	return histories, nil
}

func integer(v *structpb.Value, name string) (int64, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, name)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrMalformed, name, n.NumberValue)
	}
	return int64(n.NumberValue), nil
}
