package ilm

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the editorial state of a node.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a status string; empty maps to draft.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusDraft:
		return StatusDraft, nil
	case StatusPublished, StatusArchived:
		return Status(s), nil
	default:
		return "", invalid("unknown status %q", s)
	}
}

// Node is a hierarchical content record. Slug, ID, Path and Level are fixed
// by the service; LiveContent, References and Debates are only ever written
// together with a new Version.
type Node struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary,omitempty"`
	Status       Status    `json:"status"`
	ParentID     string    `json:"parentId,omitempty"`
	Level        int       `json:"level"`
	Path         string    `json:"path"`
	LiveContent  []Block   `json:"liveContent"`
	References   []string  `json:"references"`
	Debates      []string  `json:"debates"`
	VersionCount int       `json:"versionCount"`
	ViewCount    int64     `json:"viewCount"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsDeleted    bool      `json:"isDeleted"`
	Revision     int64     `json:"revision"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.ParentID == "" }

// EditCount is the number of versions after the first.
func (n *Node) EditCount() int {
	if n.VersionCount == 0 {
		return 0
	}
	return n.VersionCount - 1
}

// Version is an immutable, attributed snapshot of a node's content plus the
// changes from the snapshot before it.
type Version struct {
	NodeID        string    `json:"nodeId"`
	VersionID     int       `json:"versionId"`
	ChangedAt     time.Time `json:"changedAt"`
	ChangedBy     string    `json:"changedBy"`
	Changes       []Change  `json:"changes"`
	ContentBlocks []Block   `json:"contentBlocks"`
}

// Label renders the version id the way editors refer to it ("v3").
func (v *Version) Label() string { return fmt.Sprintf("v%d", v.VersionID) }

// ParseVersionLabel accepts "3" or "v3".
func ParseVersionLabel(s string) (int, error) {
	digits := s
	if len(digits) > 1 && (digits[0] == 'v' || digits[0] == 'V') {
		digits = digits[1:]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, invalid("bad version id %q", s)
	}
	return n, nil
}

// Crumb is one entry of a breadcrumb trail.
type Crumb struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// TreeNode is one entry of the knowledge tree.
type TreeNode struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	ReferenceCount int         `json:"count"`
	HasChildren    bool        `json:"hasSubTopics"`
	Children       []*TreeNode `json:"children"`
}

// SearchHit is one result of a content search.
type SearchHit struct {
	NodeID  string `json:"nodeId"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Snippet string `json:"snippet,omitempty"`
}

// Operation is an audit record of a mutating command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}
