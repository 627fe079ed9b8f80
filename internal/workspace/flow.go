package workspace

import (
	"fmt"
	"time"

	"github.com/specialistvlad/algoflow/internal/block"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Editor modes a flow can be exported from.
const (
	ModeContracts    = "contracts"
	ModeTransactions = "transactions"
)

// NextHandle is the edge handle of a statement's successor.
const NextHandle = "next"

// timestampLayout matches JavaScript's Date.prototype.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Flow is a point-in-time structural snapshot of the workspace.
type Flow struct {
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Node is one block of the snapshot.
type Node struct {
	ID     string                             `json:"id"`
	Type   string                             `json:"type"`
	Fields map[string]ctyjson.SimpleJSONValue `json:"fields,omitempty"`
}

// Edge connects a block to a slot occupant or to its successor.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	// Handle is the input slot name, or NextHandle.
	Handle string `json:"sourceHandle"`
}

// NewFlow snapshots roots depth first, in root order.
func NewFlow(roots []*block.Instance, mode string, now time.Time) Flow {
	flow := Flow{
		Nodes:     []Node{},
		Edges:     []Edge{},
		Type:      mode,
		Timestamp: now.UTC().Format(timestampLayout),
	}
	for _, root := range roots {
		root.Walk(func(b *block.Instance) bool {
			flow.Nodes = append(flow.Nodes, snapshotNode(b))
			for _, name := range b.InputNames() {
				flow.Edges = append(flow.Edges, newEdge(b.ID, b.Inputs[name].ID, name))
			}
			if b.Next != nil {
				flow.Edges = append(flow.Edges, newEdge(b.ID, b.Next.ID, NextHandle))
			}
			return true
		})
	}
	return flow
}

func snapshotNode(b *block.Instance) Node {
	n := Node{ID: b.ID, Type: b.Type}
	if len(b.Fields) > 0 {
		n.Fields = make(map[string]ctyjson.SimpleJSONValue, len(b.Fields))
		for name, v := range b.Fields {
			n.Fields[name] = ctyjson.SimpleJSONValue{Value: v}
		}
	}
	return n
}

func newEdge(source, target, handle string) Edge {
	return Edge{
		ID:     fmt.Sprintf("e-%s-%s", source, target),
		Source: source,
		Target: target,
		Handle: handle,
	}
}

// Remove deletes the block with the given id together with the blocks
// plugged into its inputs. Its successor takes its place in the stack, so
// no other block is lost. It reports whether the id was found; roots is
// modified in place and the new root list is returned.
func Remove(roots []*block.Instance, id string) ([]*block.Instance, bool) {
	for i, root := range roots {
		if root.ID != id {
			continue
		}
		out := append([]*block.Instance(nil), roots[:i]...)
		if root.Next != nil {
			out = append(out, root.Next)
		}
		return append(out, roots[i+1:]...), true
	}

	for _, root := range roots {
		if removeBelow(root, id) {
			return roots, true
		}
	}
	return roots, false
}

// removeBelow unlinks the block with the given id from anywhere under b.
func removeBelow(b *block.Instance, id string) bool {
	for cur := b; cur != nil; cur = cur.Next {
		if cur.Next != nil && cur.Next.ID == id {
			cur.Next = cur.Next.Next
			return true
		}
		for _, name := range cur.InputNames() {
			child := cur.Inputs[name]
			if child.ID == id {
				// A removed statement child is replaced by its successor.
				if child.Next != nil {
					cur.Inputs[name] = child.Next
				} else {
					delete(cur.Inputs, name)
				}
				return true
			}
			if removeBelow(child, id) {
				return true
			}
		}
	}
	return false
}
