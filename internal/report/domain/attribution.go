package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
)

// DefaultPartitionLabel groups loans that no resolver could attribute.
const DefaultPartitionLabel = "Unassigned"

// Attribution identifies the partition a loan belongs to in a breakdown
// report. Key is a stable slug suitable for map keys and URLs.
type Attribution struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// AttributionContext carries the lookup data resolvers may consult.
type AttributionContext struct {
	LeadsByID  map[snowflake.ID]loandomain.Lead
	RoutesByID map[snowflake.ID]loandomain.Route
}

// AttributionResolver attempts to place a loan in a partition. Resolvers are
// tried in order; the first hit wins.
type AttributionResolver interface {
	Resolve(loan loandomain.Loan, ctx AttributionContext) (Attribution, bool)
}

type resolverFunc func(loan loandomain.Loan, ctx AttributionContext) (Attribution, bool)

func (f resolverFunc) Resolve(loan loandomain.Loan, ctx AttributionContext) (Attribution, bool) {
	return f(loan, ctx)
}

func makeAttribution(label string) Attribution {
	return Attribution{Key: slug.Make(label), Label: label}
}

// routeSnapshot uses the route name captured on the loan at origination.
func routeSnapshot(loan loandomain.Loan, _ AttributionContext) (Attribution, bool) {
	if loan.RouteName == "" {
		return Attribution{}, false
	}
	return makeAttribution(loan.RouteName), true
}

// leadLiveRoute falls back to the responsible lead's current assignment.
func leadLiveRoute(loan loandomain.Loan, ctx AttributionContext) (Attribution, bool) {
	lead, ok := ctx.LeadsByID[loan.LeadID]
	if !ok || lead.RouteID == nil {
		return Attribution{}, false
	}
	route, ok := ctx.RoutesByID[*lead.RouteID]
	if !ok || route.Name == "" {
		return Attribution{}, false
	}
	return makeAttribution(route.Name), true
}

func defaultPartition(loandomain.Loan, AttributionContext) (Attribution, bool) {
	return makeAttribution(DefaultPartitionLabel), true
}

// RouteResolvers is the ordered fallback chain for route attribution:
// stored snapshot, then the lead's live assignment, then a default bucket.
func RouteResolvers() []AttributionResolver {
	return []AttributionResolver{
		resolverFunc(routeSnapshot),
		resolverFunc(leadLiveRoute),
		resolverFunc(defaultPartition),
	}
}

// LocalityResolvers attributes by the loan's snapshotted locality, falling
// back to the lead's registered address.
func LocalityResolvers() []AttributionResolver {
	return []AttributionResolver{
		resolverFunc(func(loan loandomain.Loan, _ AttributionContext) (Attribution, bool) {
			if loan.Locality == "" {
				return Attribution{}, false
			}
			return makeAttribution(loan.Locality), true
		}),
		resolverFunc(func(loan loandomain.Loan, ctx AttributionContext) (Attribution, bool) {
			lead, ok := ctx.LeadsByID[loan.LeadID]
			if !ok || lead.Locality == "" {
				return Attribution{}, false
			}
			return makeAttribution(lead.Locality), true
		}),
		resolverFunc(defaultPartition),
	}
}

// ResolveAttribution walks the resolver chain and returns the first match.
// The chains above always terminate with a default, so a zero Attribution
// only comes back from a custom chain with no fallback.
func ResolveAttribution(resolvers []AttributionResolver, loan loandomain.Loan, ctx AttributionContext) Attribution {
	for _, r := range resolvers {
		if attr, ok := r.Resolve(loan, ctx); ok {
			return attr
		}
	}
	return makeAttribution(DefaultPartitionLabel)
}
