// Package kb retrieves tenant-scoped knowledge-base snippets for the
// support subflow. The spec treats the vector-database engine itself as an
// external collaborator — only its query interface matters here — so this
// package models retrieval behind a narrow Retriever interface and ships
// one concrete implementation backed by Postgres + pgvector, grounded on
// the pgvector-go column type used for nearest-neighbor search in the
// retrieval-augmented-generation examples in the pack.
package kb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Document is one tenant's ingested knowledge-base article, chunked into
// Snippets at index time.
type Document struct {
	ID        string `gorm:"primaryKey"`
	TenantID  string `gorm:"index:idx_kb_doc_tenant;not null"`
	Title     string
	SourceURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Document) TableName() string { return "kb_documents" }

// Snippet is one embedded chunk of a Document, isolated per tenant so a
// similarity search never crosses tenant boundaries.
type Snippet struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"index:idx_kb_snippet_tenant;not null"`
	DocumentID string
	Content    string
	Embedding  pgvector.Vector `gorm:"type:vector(1536)"`
	CreatedAt  time.Time
}

func (Snippet) TableName() string { return "kb_snippets" }

// Result is one retrieved snippet with its similarity score in [0,1] —
// higher is more relevant.
type Result struct {
	Snippet Snippet
	Score   float64
}

// Retriever is the abstract query interface the support subflow depends
// on. Query embeddings are computed by the caller (via the same provider
// registry classifiers use) and passed in, keeping this package free of any
// specific embedding model.
type Retriever interface {
	Retrieve(ctx context.Context, tenantID string, queryEmbedding []float32, limit int) ([]Result, error)
}

// GormRepository is the Postgres+pgvector-backed Retriever.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Document{}, &Snippet{})
}

func (r *GormRepository) IndexSnippet(ctx context.Context, tenantID, documentID, content string, embedding []float32) error {
	return r.db.WithContext(ctx).Create(&Snippet{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		DocumentID: documentID,
		Content:    content,
		Embedding:  pgvector.NewVector(embedding),
		CreatedAt:  time.Now().UTC(),
	}).Error
}

// Retrieve runs a tenant-scoped cosine-similarity search using pgvector's
// `<=>` distance operator, converting distance (0=identical) to a
// similarity score in [0,1].
func (r *GormRepository) Retrieve(ctx context.Context, tenantID string, queryEmbedding []float32, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 3
	}
	q := pgvector.NewVector(queryEmbedding)

	var rows []struct {
		Snippet
		Distance float64
	}
	err := r.db.WithContext(ctx).
		Table("kb_snippets").
		Select("*, embedding <=> ? AS distance", q).
		Where("tenant_id = ?", tenantID).
		Order("distance ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(rows))
	for i, row := range rows {
		score := 1.0 - row.Distance
		if score < 0 {
			score = 0
		}
		out[i] = Result{Snippet: row.Snippet, Score: score}
	}
	return out, nil
}
