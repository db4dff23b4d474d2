package ingest

import (
	"testing"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

func TestClassifyRoleDeclaredWins(t *testing.T) {
	c := ClassifyRole("my perimeter vpc", "workload")
	if c.Role != graph.RoleWorkload || c.Confidence != 1.0 {
		t.Errorf("declared role must win at full confidence: %+v", c)
	}
}

func TestClassifyRoleTokens(t *testing.T) {
	cases := []struct {
		name string
		want graph.Role
	}{
		{"Network-Perimeter-A", graph.RolePerimeter},
		{"dmz-subnet-1", graph.RolePerimeter},
		{"public-ingress", graph.RolePerimeter},
		{"vpce-endpoints", graph.RoleEndpoint},
		{"SharedServices", graph.RoleCentral},
		{"network-hub", graph.RoleCentral},
		{"app-prod-1a", graph.RoleWorkload},
		{"spoke-dev", graph.RoleWorkload},
	}
	for _, c := range cases {
		got := ClassifyRole(c.name, "")
		if got.Role != c.want {
			t.Errorf("ClassifyRole(%q) = %s, want %s", c.name, got.Role, c.want)
		}
		if got.Confidence != 0.75 {
			t.Errorf("token match confidence = %v", got.Confidence)
		}
	}
}

func TestClassifyRoleSpecificTokenBeatsGeneric(t *testing.T) {
	// "perimeter" sits above "network" in the token table.
	c := ClassifyRole("network-perimeter", "")
	if c.Role != graph.RolePerimeter {
		t.Errorf("specific token must win, got %s", c.Role)
	}
}

func TestClassifyRoleFallback(t *testing.T) {
	c := ClassifyRole("xyz-123", "not-a-role")
	if c.Role != graph.RoleUnclassified || c.Confidence != 0 {
		t.Errorf("unknown name must degrade to Unclassified: %+v", c)
	}
}
