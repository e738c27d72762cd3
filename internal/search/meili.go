// Package search keeps a Meilisearch index of node content and feeds it
// through an asynchronous worker queue.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"ilmhub/internal/ilm"
)

// DefaultIndexName is the Meilisearch index holding nodes.
const DefaultIndexName = "ilmhub_nodes"

// indexExistsCode is the task error Meilisearch reports when CreateIndex
// finds the index already there.
const indexExistsCode = "index_already_exists"

// nodeDocument is the indexed form of a node.
type nodeDocument struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Content string `json:"content"`
}

func toDocument(n *ilm.Node) nodeDocument {
	return nodeDocument{
		ID:      n.ID,
		Slug:    n.Slug,
		Title:   n.Title,
		Summary: n.Summary,
		Path:    n.Path,
		Status:  string(n.Status),
		Content: ilm.PlainText(n.LiveContent),
	}
}

// Meili implements ilm.Indexer on a single Meilisearch index.
type Meili struct {
	client meili.ServiceManager
	index  string
}

var _ ilm.Indexer = (*Meili)(nil)

// NewMeili connects to Meilisearch and configures the node index. An
// unreachable server is an error.
func NewMeili(url, apiKey, indexName string) (*Meili, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	client := meili.New(url, meili.WithAPIKey(apiKey))

	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("meilisearch unavailable at %s: %w", url, err)
	}

	m := &Meili{client: client, index: indexName}
	if err := m.configureIndex(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Meili) configureIndex() error {
	info, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.index, PrimaryKey: "id"})
	if err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}
	task, err := m.client.WaitForTask(info.TaskUID, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("wait for index %s: %w", m.index, err)
	}
	if err := taskFailure(task); err != nil {
		return fmt.Errorf("create index %s: %w", m.index, err)
	}

	index := m.client.Index(m.index)
	searchable := []string{"title", "summary", "content", "slug"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes for %s: %w", m.index, err)
	}
	filterable := []interface{}{"status", "path"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes for %s: %w", m.index, err)
	}
	return nil
}

// taskFailure returns the error of a failed task. An index that already
// exists is not a failure.
func taskFailure(task *meili.Task) error {
	if task.Status != meili.TaskStatusFailed || task.Error.Code == indexExistsCode {
		return nil
	}
	return fmt.Errorf("%s: %s", task.Error.Code, task.Error.Message)
}

// IndexNode adds or replaces the node's document.
func (m *Meili) IndexNode(_ context.Context, node *ilm.Node) error {
	if _, err := m.client.Index(m.index).AddDocuments([]nodeDocument{toDocument(node)}, nil); err != nil {
		return fmt.Errorf("index node %s: %w", node.ID, err)
	}
	return nil
}

// RemoveNode deletes the node's document. Meilisearch treats unknown ids as
// a successful no-op.
func (m *Meili) RemoveNode(_ context.Context, nodeID string) error {
	if _, err := m.client.Index(m.index).DeleteDocument(nodeID, nil); err != nil {
		return fmt.Errorf("remove node %s: %w", nodeID, err)
	}
	return nil
}

// Search queries the node index, cropping content around the match.
func (m *Meili) Search(_ context.Context, query string, limit int) ([]ilm.SearchHit, error) {
	resp, err := m.client.Index(m.index).Search(query, &meili.SearchRequest{
		Limit:            int64(limit),
		AttributesToCrop: []string{"content"},
		CropLength:       24,
	})
	if err != nil {
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	hits := make([]ilm.SearchHit, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		hits = append(hits, ilm.SearchHit{
			NodeID:  decodeString(hit, "id"),
			Slug:    decodeString(hit, "slug"),
			Title:   decodeString(hit, "title"),
			Path:    decodeString(hit, "path"),
			Snippet: firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "summary")),
		})
	}
	return hits, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
