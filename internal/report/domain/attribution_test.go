package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	"github.com/stretchr/testify/assert"
)

func routeID(id int64) *snowflake.ID {
	v := snowflake.ID(id)
	return &v
}

func TestResolveAttributionPrecedence(t *testing.T) {
	ctx := AttributionContext{
		LeadsByID: map[snowflake.ID]loandomain.Lead{
			10: {ID: 10, RouteID: routeID(20), Locality: "San Pedro"},
		},
		RoutesByID: map[snowflake.ID]loandomain.Route{
			20: {ID: 20, Name: "Ruta Norte"},
		},
	}

	tests := []struct {
		name      string
		loan      loandomain.Loan
		wantLabel string
		wantKey   string
	}{
		{
			name:      "snapshot wins over live assignment",
			loan:      loandomain.Loan{LeadID: 10, RouteName: "Ruta Centro"},
			wantLabel: "Ruta Centro",
			wantKey:   "ruta-centro",
		},
		{
			name:      "lead live route when snapshot missing",
			loan:      loandomain.Loan{LeadID: 10},
			wantLabel: "Ruta Norte",
			wantKey:   "ruta-norte",
		},
		{
			name:      "default when nothing resolves",
			loan:      loandomain.Loan{LeadID: 99},
			wantLabel: DefaultPartitionLabel,
			wantKey:   "unassigned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := ResolveAttribution(RouteResolvers(), tt.loan, ctx)
			assert.Equal(t, tt.wantLabel, attr.Label)
			assert.Equal(t, tt.wantKey, attr.Key)
		})
	}
}

func TestResolveLocalityFallsBackToLead(t *testing.T) {
	ctx := AttributionContext{
		LeadsByID: map[snowflake.ID]loandomain.Lead{
			10: {ID: 10, Locality: "San Pedro"},
		},
	}

	attr := ResolveAttribution(LocalityResolvers(), loandomain.Loan{LeadID: 10}, ctx)
	assert.Equal(t, "San Pedro", attr.Label)
	assert.Equal(t, "san-pedro", attr.Key)

	attr = ResolveAttribution(LocalityResolvers(), loandomain.Loan{LeadID: 10, Locality: "Villa Juárez"}, ctx)
	assert.Equal(t, "Villa Juárez", attr.Label)
	assert.Equal(t, "villa-juarez", attr.Key)
}
