package render

import (
	"bytes"
	"text/template"

	"github.com/cumulus-hpc/controller/job"
)

// Context is the fixed variable set every submission script template
// is rendered with: {{.Cluster}}, {{.Job}}, {{.BaseURL}}, and
// {{.Params}} (a flattened merge of the job's own params with any the
// caller computed, such as parallelEnvironment or numberOfSlots).
type Context struct {
	Cluster *job.Cluster
	Job     *job.Job
	BaseURL string
	Params  map[string]string
}

// data widens ctx into the map text/template actually executes
// against: besides the Go-styled {{.Cluster}}/{{.Job}}/{{.BaseURL}}/
// {{.Params}} names, it carries {{.base_url}}, the alias spec.md §6
// promises onTerminate command blocks (the only place the lowercase
// spelling is documented to appear).
func (ctx Context) data() map[string]any {
	return map[string]any{
		"Cluster":  ctx.Cluster,
		"Job":      ctx.Job,
		"BaseURL":  ctx.BaseURL,
		"base_url": ctx.BaseURL,
		"Params":   ctx.Params,
	}
}

// Script parses and renders tmpl against ctx, returning the rendered
// script text.
func Script(tmpl string, ctx Context) (string, error) {
	t, err := template.New("script").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx.data()); err != nil {
		return "", err
	}
	return buf.String(), nil
}
