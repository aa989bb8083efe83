package alerts

import (
	"bytes"
	"fmt"
	"html/template"
)

var bodyTemplate = template.Must(template.New("low_stock").Parse(`<h2>Low Stock Alert - {{ .Scope }}</h2>
<p>The following items are at or below reorder level under {{ .Scope }}:</p>
<table border="1" cellpadding="5" cellspacing="0">
  <tr>
    <th>Item Code</th>
    <th>Item Name</th>
    <th>Leaf Warehouse</th>
    <th>Projected Qty</th>
    <th>Reorder Level</th>
    <th>Reorder Qty</th>
  </tr>
{{- range .Items }}
  <tr>
    <td>{{ .ItemCode }}</td>
    <td>{{ .ItemName }}</td>
    <td>{{ .Warehouse }}</td>
    <td>{{ .ProjectedQty.String }}</td>
    <td>{{ .ReorderLevel.String }}</td>
    <td>{{ .ReorderQty.String }}</td>
  </tr>
{{- end }}
</table>
`))

// RenderHTML renders the item table of n. Values are HTML-escaped.
func RenderHTML(n Notification) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, n); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}
