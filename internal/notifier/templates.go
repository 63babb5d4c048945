package notifier

import (
	"bytes"
	"fmt"
	"html/template"
)

var digestTemplate = template.Must(template.New("digest").Parse(`
<h2>Order Replacement Batch Completed</h2>
<p>The following {{len .OrderIDs}} subscription orders were replaced successfully:</p>
<ul>
{{- range .OrderIDs}}
  <li>{{.}}</li>
{{- end}}
</ul>
`))

var failureTemplate = template.Must(template.New("failure").Parse(`
<h2>Order Processing Failed</h2>
<p>Order <strong>{{.OrderID}}</strong> could not be processed after all retry attempts.</p>
<p>Last error: {{.Reason}}</p>
<p>Check the audit log for the step that failed.</p>
`))

var faultTemplate = template.Must(template.New("fault").Parse(`
<h2>Order Worker Fault</h2>
<p>The order worker reported an infrastructure error:</p>
<p>{{.Reason}}</p>
`))

func digestSubject(n int) string {
	return fmt.Sprintf("Batch of %d Orders Completed", n)
}

const (
	failureSubject = "Order Processing Failed (Permanent)"
	faultSubject   = "Order Worker Fault"
)

func renderDigest(orderIDs []string) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, struct{ OrderIDs []string }{orderIDs}); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}

func renderFailure(orderID, reason string) (string, error) {
	var buf bytes.Buffer
	err := failureTemplate.Execute(&buf, struct{ OrderID, Reason string }{orderID, reason})
	if err != nil {
		return "", fmt.Errorf("rendering failure notice: %w", err)
	}
	return buf.String(), nil
}

func renderFault(reason string) (string, error) {
	var buf bytes.Buffer
	if err := faultTemplate.Execute(&buf, struct{ Reason string }{reason}); err != nil {
		return "", fmt.Errorf("rendering fault notice: %w", err)
	}
	return buf.String(), nil
}
