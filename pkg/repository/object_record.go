package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// objectRecord is an object row as stored, before its payload is decoded.
type objectRecord struct {
	Id         uint
	ExternalId string
	IntID      int64
	Owner      string
	Class      string
	Mime       string
	Payload    string
	SharedWith []string
	Broken     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// decode turns a record into an object. Undecodable payloads are Corrupt and
// unknown classes are TypeMismatch.
func (r *objectRecord) decode() (*types.Object, error) {
	id := catalog.IntID(r.IntID)

	if _, ok := types.ObjectClasses[r.Class]; !ok {
		return nil, catalog.NewResolutionError(id, catalog.TypeMismatch, r.Class,
			fmt.Errorf("unknown object class %q", r.Class))
	}

	payload := make(map[string]any)
	if r.Payload != "" {
		if err := json.Unmarshal([]byte(r.Payload), &payload); err != nil {
			return nil, catalog.NewResolutionError(id, catalog.Corrupt, r.Class, err)
		}
	}

	shared := r.SharedWith
	if shared == nil {
		shared = []string{}
	}

	return &types.Object{
		Id:         r.Id,
		ExternalId: r.ExternalId,
		IntID:      r.IntID,
		Owner:      r.Owner,
		Class:      r.Class,
		Mime:       r.Mime,
		Payload:    payload,
		SharedWith: shared,
		Broken:     r.Broken,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func encodePayload(obj *types.Object) (string, error) {
	if obj.Payload == nil {
		return "{}", nil
	}
	data, err := json.Marshal(obj.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}
