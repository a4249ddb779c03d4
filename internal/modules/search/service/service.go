package service

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"anoa.com/peerlink/pkg/sanitizer"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
)

const studentsIndex = "students"

type StudentDocument struct {
	ID       string   `json:"id"`
	UserID   string   `json:"userId"`
	Name     string   `json:"name"`
	Headline string   `json:"headline"`
	Location string   `json:"location"`
	Skills   []string `json:"skills"`
}

type StudentQuery struct {
	Name          string
	Skills        []string
	ExcludeUserID uuid.UUID
	Limit         int
}

// StudentIndex is the full-text index behind student search.
type StudentIndex interface {
	IndexStudent(doc StudentDocument) error
	IndexStudents(docs []StudentDocument) error
	SearchStudents(q StudentQuery) ([]uuid.UUID, error)
}

type meiliStudentIndex struct {
	client meilisearch.ServiceManager
}

func NewMeiliStudentIndex(client meilisearch.ServiceManager) StudentIndex {
	s := &meiliStudentIndex{client: client}
	s.initIndex()
	return s
}

// NewStudentDocument normalizes profile fields for indexing.
func NewStudentDocument(userID uuid.UUID, name, headline, location string, skills []string) StudentDocument {
	lowered := make([]string, 0, len(skills))
	for _, s := range skills {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(s)))
	}
	return StudentDocument{
		ID:       userID.String(),
		UserID:   userID.String(),
		Name:     sanitizer.Text(name),
		Headline: sanitizer.Text(headline),
		Location: sanitizer.Text(location),
		Skills:   lowered,
	}
}

func (s *meiliStudentIndex) initIndex() {
	filterable := []any{"skills", "userId"}
	if _, err := s.client.Index(studentsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("Failed to update students filterable attributes: %v", err)
	}

	searchable := []string{"name", "headline", "skills", "location"}
	if _, err := s.client.Index(studentsIndex).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("Failed to update students searchable attributes: %v", err)
	}

	log.Println("Meilisearch students index initialized")
}

func (s *meiliStudentIndex) IndexStudent(doc StudentDocument) error {
	return s.IndexStudents([]StudentDocument{doc})
}

func (s *meiliStudentIndex) IndexStudents(docs []StudentDocument) error {
	if len(docs) == 0 {
		return nil
	}
	primaryKey := "id"
	if _, err := s.client.Index(studentsIndex).AddDocuments(docs, &primaryKey); err != nil {
		return fmt.Errorf("failed to index students: %w", err)
	}
	return nil
}

func (s *meiliStudentIndex) SearchStudents(q StudentQuery) ([]uuid.UUID, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	raw, err := s.client.Index(studentsIndex).SearchRaw(strings.TrimSpace(q.Name), &meilisearch.SearchRequest{
		Limit:                int64(limit),
		Filter:               BuildFilter(q),
		AttributesToRetrieve: []string{"userId"},
	})
	if err != nil {
		return nil, fmt.Errorf("student search failed: %w", err)
	}

	var res struct {
		Hits []struct {
			UserID string `json:"userId"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &res); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(res.Hits))
	for _, h := range res.Hits {
		if id, err := uuid.Parse(h.UserID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// BuildFilter renders the meilisearch filter expression for q.
func BuildFilter(q StudentQuery) string {
	var parts []string
	if q.ExcludeUserID != uuid.Nil {
		parts = append(parts, fmt.Sprintf("userId != %q", q.ExcludeUserID.String()))
	}
	if len(q.Skills) > 0 {
		quoted := make([]string, 0, len(q.Skills))
		for _, skill := range q.Skills {
			quoted = append(quoted, fmt.Sprintf("%q", strings.ToLower(strings.TrimSpace(skill))))
		}
		parts = append(parts, fmt.Sprintf("skills IN [%s]", strings.Join(quoted, ", ")))
	}
	return strings.Join(parts, " AND ")
}
