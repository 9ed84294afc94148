package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-ddd-users-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// userDoc is what gets indexed; the password never leaves the store.
type userDoc struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	Roles     []string  `json:"roles"`
	Created   time.Time `json:"created"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
}

// UserIndex mirrors users into an Elasticsearch index.
type UserIndex struct {
	client *es.Client
	index  string
}

func NewUserIndex(client *es.Client, index string) *UserIndex {
	return &UserIndex{client: client, index: index}
}

func (x *UserIndex) Index(ctx context.Context, u *entity.User) error {
	b, err := json.Marshal(userDoc{
		ID:        u.ID,
		Email:     u.Email,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Roles:     u.Roles,
		Created:   u.Created,
		Active:    u.Active,
		Verified:  u.Verified,
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.client)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", u.ID, res.Status())
	}
	return nil
}

func (x *UserIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.client)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete %s: %s", id, res.Status())
	}
	return nil
}

// Search runs a multi_match on email (boosted) and names.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]*entity.User, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "firstname", "lastname"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.client.Search(
		x.client.Search.WithContext(c),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		d := h.Source
		roles := d.Roles
		if roles == nil {
			roles = []string{}
		}
		out = append(out, &entity.User{
			ID:        d.ID,
			Email:     d.Email,
			Firstname: d.Firstname,
			Lastname:  d.Lastname,
			Roles:     roles,
			Created:   d.Created,
			Active:    d.Active,
			Verified:  d.Verified,
		})
	}
	return out, nil
}
