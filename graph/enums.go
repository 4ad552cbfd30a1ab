// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quiver Contributors

package graph

// EnumerationOrder selects the sort applied to filtered enumeration.
type EnumerationOrder string

const (
	CreatedAscending  EnumerationOrder = "CreatedAscending"
	CreatedDescending EnumerationOrder = "CreatedDescending"
	NameAscending     EnumerationOrder = "NameAscending"
	NameDescending    EnumerationOrder = "NameDescending"
	GuidAscending     EnumerationOrder = "GuidAscending"
	GuidDescending    EnumerationOrder = "GuidDescending"
	CostAscending     EnumerationOrder = "CostAscending"
	CostDescending    EnumerationOrder = "CostDescending"
)

// Valid reports whether the order is a known enumeration order.
func (o EnumerationOrder) Valid() bool {
	switch o {
	case CreatedAscending, CreatedDescending,
		NameAscending, NameDescending,
		GuidAscending, GuidDescending,
		CostAscending, CostDescending:
		return true
	default:
		return false
	}
}

// VectorSearchDomain names the entity family a vector search runs over.
// The taxonomy is part of the repository contract; the numeric
// computation is implemented by an external collaborator.
type VectorSearchDomain string

const (
	VectorSearchDomainGraph VectorSearchDomain = "Graph"
	VectorSearchDomainNode  VectorSearchDomain = "Node"
	VectorSearchDomainEdge  VectorSearchDomain = "Edge"
)

// VectorSearchType names the similarity operator a vector search uses.
type VectorSearchType string

const (
	VectorSearchCosineSimilarity    VectorSearchType = "CosineSimilarity"
	VectorSearchCosineDistance      VectorSearchType = "CosineDistance"
	VectorSearchEuclidianSimilarity VectorSearchType = "EuclidianSimilarity"
	VectorSearchEuclidianDistance   VectorSearchType = "EuclidianDistance"
	VectorSearchDotProduct          VectorSearchType = "DotProduct"
)

// Valid reports whether the domain is a known search domain.
func (d VectorSearchDomain) Valid() bool {
	switch d {
	case VectorSearchDomainGraph, VectorSearchDomainNode, VectorSearchDomainEdge:
		return true
	default:
		return false
	}
}

// Valid reports whether the search type is a known similarity operator.
func (t VectorSearchType) Valid() bool {
	switch t {
	case VectorSearchCosineSimilarity, VectorSearchCosineDistance,
		VectorSearchEuclidianSimilarity, VectorSearchEuclidianDistance,
		VectorSearchDotProduct:
		return true
	default:
		return false
	}
}
