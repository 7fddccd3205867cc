package passes

import (
	"context"

	"cpg/internal/graph"
)

// ImportResolver merges namespaces declared in several units under the
// same name. The first occurrence becomes the home namespace and receives
// the declarations of all later ones, so name resolution sees one
// namespace per name.
type ImportResolver struct{}

func NewImportResolver() *ImportResolver { return &ImportResolver{} }

func (p *ImportResolver) Name() string { return "ImportResolver" }

func (p *ImportResolver) Run(_ context.Context, pc *Context) error {
	homes := make(map[string]*graph.NamespaceDecl)
	for _, unit := range pc.Units {
		for _, d := range unit.Declarations {
			ns, ok := d.(*graph.NamespaceDecl)
			if !ok {
				continue
			}
			home, seen := homes[ns.Name]
			if !seen {
				homes[ns.Name] = ns
				continue
			}
			home.Declarations = append(home.Declarations, ns.Declarations...)
			ns.Declarations = nil
			pc.Logger.Debug("merged namespace", "name", ns.Name, "into", home.Location.String())
		}
	}
	return nil
}
