package transfer

import "github.com/loykin/graphmigrate/internal/backend"

// CatalogOptions carries optional collaborators for catalog construction.
type CatalogOptions struct {
	// Embedder regenerates embeddings when vector encodings differ.
	Embedder Embedder
}

// Catalog returns the standard ordered set of transfer operations: nodes,
// then edges (which depend on nodes existing in the target), then
// documents, then vectors.
func Catalog(source, target backend.Adapter, opts CatalogOptions) []Operation {
	return []Operation{
		NewNodeTransfer(source, target),
		NewEdgeTransfer(source, target),
		NewDocumentTransfer(source, target),
		NewVectorTransfer(source, target, opts.Embedder),
	}
}
