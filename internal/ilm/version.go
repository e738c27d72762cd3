package ilm

import "time"

// Commit is the complete write produced by the version engine for one
// content update: the appended version and the derived mirror fields that
// must be persisted with it.
type Commit struct {
	Version    *Version
	References []string
	Debates    []string
}

// PrepareCommit computes the next version of node for newBlocks. The first
// version of a node always carries an empty change set. PrepareCommit does
// not touch node.
func PrepareCommit(mode DiffMode, node *Node, newBlocks []Block, actor string, now time.Time) *Commit {
	changes := []Change{}
	if node.VersionCount > 0 {
		changes = Diff(mode, node.LiveContent, newBlocks)
	}

	snapshot := CloneBlocks(newBlocks)
	if snapshot == nil {
		snapshot = []Block{}
	}

	refs, debates := ExtractIndexes(snapshot)
	return &Commit{
		Version: &Version{
			NodeID:        node.ID,
			VersionID:     node.VersionCount + 1,
			ChangedAt:     now.UTC(),
			ChangedBy:     actor,
			Changes:       changes,
			ContentBlocks: snapshot,
		},
		References: refs,
		Debates:    debates,
	}
}

// Apply mirrors a commit onto an in-memory node, matching what the store
// persists. The revision is left to the caller.
func (c *Commit) Apply(node *Node) {
	node.LiveContent = CloneBlocks(c.Version.ContentBlocks)
	node.References = c.References
	node.Debates = c.Debates
	node.VersionCount = c.Version.VersionID
	node.UpdatedAt = c.Version.ChangedAt
}
