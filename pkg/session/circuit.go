// Copyright (c) 2025 - for information on the respective copyright owner
// see the NOTICE file and/or the repository https://github.com/moirai-mpc/moirai.
//
// SPDX-License-Identifier: Apache-2.0
package session

import (
	"github.com/google/uuid"

	"github.com/moirai-mpc/moirai/pkg/types"
)

// WireHandle names one secret shared value of a session. Handles are only
// valid within the session that issued them.
type WireHandle struct {
	Session uuid.UUID
	ID      types.WireID
}

// NodeKind enumerates the circuit operations. The evaluator switches over the
// kind exhaustively, adding an operation extends the enum and the switch.
type NodeKind uint8

const (
	// NodeInput is a secret input wire, its shares are placed at submission time.
	NodeInput NodeKind = iota + 1
	// NodeAdd sums two wires.
	NodeAdd
	// NodeSub subtracts the right wire from the left one.
	NodeSub
	// NodeMul multiplies two wires interactively.
	NodeMul
	// NodeAddConst adds a public constant to a wire.
	NodeAddConst
	// NodeSubConst subtracts a public constant from a wire.
	NodeSubConst
	// NodeMulConst scales a wire by a public constant.
	NodeMulConst
	// NodeCmpGT yields the bit left > right.
	NodeCmpGT
	// NodeCmpGTE yields the bit left >= right.
	NodeCmpGTE
	// NodeCmpEQ yields the bit left == right.
	NodeCmpEQ
)

// String returns the kind name for logging.
func (k NodeKind) String() string {
	switch k {
	case NodeInput:
		return "Input"
	case NodeAdd:
		return "Add"
	case NodeSub:
		return "Sub"
	case NodeMul:
		return "Mul"
	case NodeAddConst:
		return "AddConst"
	case NodeSubConst:
		return "SubConst"
	case NodeMulConst:
		return "MulConst"
	case NodeCmpGT:
		return "CmpGT"
	case NodeCmpGTE:
		return "CmpGTE"
	case NodeCmpEQ:
		return "CmpEQ"
	}
	return "Unknown"
}

// node is one operation of the expression graph. Binary kinds use left and
// right, the constant kinds use left and the public constant.
type node struct {
	kind     NodeKind
	out      types.WireID
	left     types.WireID
	right    types.WireID
	constant uint64
}

// circuit is the expression DAG under construction. A wire always exists
// before any node consuming it can be built, so the node list is already in
// topological order and every node is evaluated exactly once, no matter how
// many consumers share its output wire.
type circuit struct {
	nodes []node
	next  types.WireID
}

// addNode appends an operation and allocates its output wire.
func (c *circuit) addNode(kind NodeKind, left, right types.WireID, constant uint64) types.WireID {
	out := c.next
	c.next++
	c.nodes = append(c.nodes, node{
		kind:     kind,
		out:      out,
		left:     left,
		right:    right,
		constant: constant,
	})
	return out
}

// defined reports whether the wire was issued by this circuit.
func (c *circuit) defined(w types.WireID) bool {
	return w < c.next
}

// size returns the number of operations in the graph.
func (c *circuit) size() int {
	return len(c.nodes)
}
