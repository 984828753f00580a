package store

import (
	"context"
	"os"
	"sort"

	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/cayley/graph"
	_ "github.com/cayleygraph/cayley/graph/kv/bolt"
	"github.com/cayleygraph/quad"
	"github.com/pkg/errors"
)

const (
	linksTo     = "links_to"
	redirectsTo = "redirects_to"
)

// LinkGraph keeps the link and redirect edges found while crawling
type LinkGraph struct {
	Store    *cayley.Handle
	filepath string
}

// NewLinkGraph stored in a bolt file under filepath, empty means in memory
func NewLinkGraph(filepath string) *LinkGraph {
	return &LinkGraph{filepath: filepath}
}

var _ Storer = (*LinkGraph)(nil)

// Init the graph
func (g *LinkGraph) Init() error {
	var err error
	if g.filepath == "" {
		g.Store, err = cayley.NewMemoryGraph()
		return err
	}
	if err = os.MkdirAll(g.filepath, 0755); err != nil {
		return err
	}
	g.Store, err = openGraph("bolt", g.filepath)
	return err
}

// openGraph initializes the quad store on first use and opens it
func openGraph(dbType, filepath string) (*cayley.Handle, error) {
	err := graph.InitQuadStore(dbType, filepath, nil)
	if err != nil && err != graph.ErrDatabaseExists {
		return nil, errors.Wrapf(err, "failed to init %s quad store", dbType)
	}

	store, err := cayley.NewGraph(dbType, filepath, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s graph", dbType)
	}
	return store, nil
}

// AddLink from a page to a link found on it
func (g *LinkGraph) AddLink(from, to string) error {
	return g.add(from, linksTo, to)
}

// AddRedirect from a page to its Location
func (g *LinkGraph) AddRedirect(from, to string) error {
	return g.add(from, redirectsTo, to)
}

func (g *LinkGraph) add(from, predicate, to string) error {
	err := g.Store.AddQuad(quad.Make(quad.IRI(from), quad.IRI(predicate), quad.IRI(to), nil))
	if err != nil && !graph.IsQuadExist(err) {
		return errors.Wrap(err, "failed to add edge")
	}
	return nil
}

// LinksFrom returns every page from links to
func (g *LinkGraph) LinksFrom(from string) ([]string, error) {
	return g.out(from, linksTo)
}

// RedirectsFrom returns the redirect targets of from
func (g *LinkGraph) RedirectsFrom(from string) ([]string, error) {
	return g.out(from, redirectsTo)
}

func (g *LinkGraph) out(from, predicate string) ([]string, error) {
	p := cayley.StartPath(g.Store, quad.IRI(from)).Out(quad.IRI(predicate))
	values, err := p.Iterate(context.Background()).AllValues(g.Store)
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate links")
	}

	links := make([]string, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case quad.IRI:
			links = append(links, string(val))
		case quad.String:
			links = append(links, string(val))
		default:
			links = append(links, quad.StringOf(v))
		}
	}
	sort.Strings(links)
	return links, nil
}

// Close the graph
func (g *LinkGraph) Close() error {
	return g.Store.Close()
}
