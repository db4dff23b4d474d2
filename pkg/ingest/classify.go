package ingest

import (
	"strings"

	"github.com/p3dr0zz/LZA-Network-Visualizer/pkg/graph"
)

// Classification is the result of role inference: a role label plus the
// confidence behind it. Inference never fails; the floor is Unclassified
// with zero confidence.
type Classification struct {
	Role       graph.Role
	Confidence float64
}

// roleTokens maps naming hints to roles. Order matters: the first matching
// token wins, so more specific hints sit above generic ones.
var roleTokens = []struct {
	token string
	role  graph.Role
}{
	{"perimeter", graph.RolePerimeter},
	{"dmz", graph.RolePerimeter},
	{"edge", graph.RolePerimeter},
	{"ingress", graph.RolePerimeter},
	{"public", graph.RolePerimeter},
	{"endpoint", graph.RoleEndpoint},
	{"vpce", graph.RoleEndpoint},
	{"interface", graph.RoleEndpoint},
	{"central", graph.RoleCentral},
	{"hub", graph.RoleCentral},
	{"shared", graph.RoleCentral},
	{"network", graph.RoleCentral},
	{"workload", graph.RoleWorkload},
	{"app", graph.RoleWorkload},
	{"application", graph.RoleWorkload},
	{"spoke", graph.RoleWorkload},
	{"prod", graph.RoleWorkload},
	{"dev", graph.RoleWorkload},
}

var declaredRoles = map[string]graph.Role{
	"perimeter": graph.RolePerimeter,
	"endpoint":  graph.RoleEndpoint,
	"central":   graph.RoleCentral,
	"workload":  graph.RoleWorkload,
}

// ClassifyRole infers the deployment role of a VPC or Subnet. An explicitly
// declared role is taken at full confidence; otherwise the display name is
// scanned for known tokens. No match degrades to Unclassified.
func ClassifyRole(name, declared string) Classification {
	if r, ok := declaredRoles[strings.ToLower(strings.TrimSpace(declared))]; ok {
		return Classification{Role: r, Confidence: 1.0}
	}

	lowered := strings.ToLower(name)
	for _, rt := range roleTokens {
		if strings.Contains(lowered, rt.token) {
			return Classification{Role: rt.role, Confidence: 0.75}
		}
	}
	return Classification{Role: graph.RoleUnclassified, Confidence: 0}
}
