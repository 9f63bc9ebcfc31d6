// math/kdtree.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// KDPoint is a position along with the caller's index for it.
type KDPoint struct {
	P     r3.Vec
	Index int
}

// KDNode is a node in a 3D KD-tree
type KDNode struct {
	Location KDPoint
	Axis     int
	Left     *KDNode
	Right    *KDNode
}

func axisValue(p r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// BuildKDTree constructs a balanced KD-tree from a slice of points. The
// tree cycles through splitting by X, Y, and Z at successive levels. The
// slice is reordered in place.
func BuildKDTree(points []KDPoint) *KDNode {
	if len(points) == 0 {
		return nil
	}
	return buildKDTreeRecursive(points, 0)
}

func buildKDTreeRecursive(points []KDPoint, depth int) *KDNode {
	if len(points) == 0 {
		return nil
	}
	axis := depth % 3
	if len(points) == 1 {
		return &KDNode{Location: points[0], Axis: axis}
	}

	slices.SortFunc(points, func(a, b KDPoint) int {
		va, vb := axisValue(a.P, axis), axisValue(b.P, axis)
		if va < vb {
			return -1
		} else if va > vb {
			return 1
		}
		return a.Index - b.Index
	})

	median := len(points) / 2

	return &KDNode{
		Location: points[median],
		Axis:     axis,
		Left:     buildKDTreeRecursive(points[:median], depth+1),
		Right:    buildKDTreeRecursive(points[median+1:], depth+1),
	}
}

// Within appends the indices of all points within radius of center to
// indices and returns the result. Order follows the tree traversal.
func (tree *KDNode) Within(center r3.Vec, radius float64, indices []int) []int {
	if tree == nil {
		return indices
	}

	if DistanceSquared(tree.Location.P, center) <= radius*radius {
		indices = append(indices, tree.Location.Index)
	}

	d := axisValue(center, tree.Axis) - axisValue(tree.Location.P, tree.Axis)
	if d <= radius {
		indices = tree.Left.Within(center, radius, indices)
	}
	if d >= -radius {
		indices = tree.Right.Within(center, radius, indices)
	}
	return indices
}
