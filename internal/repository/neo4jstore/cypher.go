package neo4jstore

import (
	"fmt"
	"strings"

	"github.com/vara-prasad-07/internet-yellow-pages/internal/domain"
	"github.com/vara-prasad-07/internet-yellow-pages/internal/repository"
)

// fingerprintProp holds the property-map fingerprint on relationships
const fingerprintProp = "_fingerprint"

// quote backtick-quotes an identifier. Callers validate identifiers first,
// so this only guards against names that are keywords.
func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// labelExpr renders :`A`:`B`
func labelExpr(labels []string) string {
	var b strings.Builder
	for _, l := range domain.NormalizeLabels(labels) {
		b.WriteByte(':')
		b.WriteString(quote(l))
	}
	return b.String()
}

// mapPattern renders {`a`: $prefix0, ...} and fills params
func mapPattern(props domain.Properties, prefix string, params map[string]any) string {
	parts := make([]string, 0, len(props))
	for i, name := range props.Names() {
		param := fmt.Sprintf("%s%d", prefix, i)
		parts = append(parts, quote(name)+": $"+param)
		params[param] = props[name].Interface()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// constraintQuery renders the DDL for one constraint
func constraintQuery(c domain.Constraint) string {
	return fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS %s",
		quote(c.Name()), quote(c.Label), quote(c.Property), string(c.Rule))
}

// mergeNodeQuery renders a get-or-create. With a key label the node is
// merged on its key and then receives every label and property; without
// one the whole map is the merge pattern.
func mergeNodeQuery(req repository.MergeNodeRequest) (string, map[string]any) {
	params := map[string]any{}

	if req.KeyLabel == "" {
		return fmt.Sprintf("MERGE (n%s %s)\nRETURN id(n) AS nodeId",
			labelExpr(req.Labels), mapPattern(req.Properties, "p", params)), params
	}

	params["props"] = req.Properties.Native()
	query := fmt.Sprintf("MERGE (n%s %s)\nSET n += $props",
		labelExpr([]string{req.KeyLabel}), mapPattern(req.Key, "k", params))
	if extra := otherLabels(req.Labels, req.KeyLabel); len(extra) > 0 {
		query += "\nSET n" + labelExpr(extra)
	}
	return query + "\nRETURN id(n) AS nodeId", params
}

func otherLabels(labels []string, except string) []string {
	var out []string
	for _, l := range labels {
		if l != except {
			out = append(out, l)
		}
	}
	return out
}

// matchNodeQuery renders a subset match returning the lowest id
func matchNodeQuery(labels []string, props domain.Properties) (string, map[string]any) {
	params := map[string]any{}
	var conds []string
	for i, name := range props.Names() {
		param := fmt.Sprintf("p%d", i)
		conds = append(conds, fmt.Sprintf("n.%s = $%s", quote(name), param))
		params[param] = props[name].Interface()
	}

	query := "MATCH (n" + labelExpr(labels) + ")"
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	return query + "\nRETURN id(n) AS nodeId ORDER BY nodeId LIMIT 1", params
}

// matchByPropertyQuery renders the bulk lookup of label nodes by one property
func matchByPropertyQuery(label, property string, all bool) string {
	if all {
		return fmt.Sprintf("MATCH (n:%s)\nWHERE n.%s IS NOT NULL\nRETURN n.%s AS value, id(n) AS nodeId ORDER BY nodeId",
			quote(label), quote(property), quote(property))
	}
	return fmt.Sprintf("UNWIND $values AS v\nMATCH (n:%s)\nWHERE n.%s = v\nRETURN v AS value, id(n) AS nodeId ORDER BY nodeId",
		quote(label), quote(property))
}

// mergeByPropertyQuery renders the bulk get-or-create of label nodes
func mergeByPropertyQuery(label, property string) string {
	return fmt.Sprintf("UNWIND $values AS v\nMERGE (n:%s {%s: v})", quote(label), quote(property))
}

// mergeEdgesQuery renders the bulk match-or-create of one relationship type.
// Each row carries src, dst, fp and props.
func mergeEdgesQuery(typ string) string {
	return fmt.Sprintf(`UNWIND $rows AS row
MATCH (a) WHERE id(a) = row.src
MATCH (b) WHERE id(b) = row.dst
MERGE (a)-[r:%s {%s: row.fp}]->(b)
ON CREATE SET r += row.props
RETURN count(r) AS merged`, quote(typ), quote(fingerprintProp))
}

// edgeRows groups requests by type into UNWIND parameter rows, preserving
// the order in which types first appear
func edgeRows(reqs []repository.EdgeRequest) ([]string, map[string][]map[string]any) {
	var types []string
	rows := make(map[string][]map[string]any)
	for _, req := range reqs {
		if _, ok := rows[req.Type]; !ok {
			types = append(types, req.Type)
		}
		rows[req.Type] = append(rows[req.Type], map[string]any{
			"src":   int64(req.Src),
			"dst":   int64(req.Dst),
			"fp":    req.Properties.Fingerprint(),
			"props": req.Properties.Native(),
		})
	}
	return types, rows
}

// externalIDQuery finds the entity linked to the external-identifier node
// labeled namespace whose id equals $id
func externalIDQuery(namespace string) string {
	return "MATCH (a)-[:" + quote(domain.LinkExternalID) + "]->(i:" + quote(namespace) + ")\n" +
		"WHERE i.`" + domain.PropExternalID + "` = $id\n" +
		"RETURN id(a) AS nodeId ORDER BY nodeId LIMIT 1"
}

const existingNodesQuery = "UNWIND $ids AS i\nMATCH (n) WHERE id(n) = i\nRETURN collect(id(n)) AS found"

const getNodeQuery = "MATCH (n) WHERE id(n) = $id\nRETURN labels(n) AS labels, properties(n) AS props"

const listEdgesQuery = `MATCH (a)-[r]->(b) WHERE id(a) = $src AND id(b) = $dst
RETURN type(r) AS type, properties(r) AS props ORDER BY id(r)`
