package render_test

import (
	"strings"
	"testing"

	"github.com/cumulus-hpc/controller/job"
	"github.com/cumulus-hpc/controller/render"
)

func TestScriptRendersFields(t *testing.T) {
	ctx := render.Context{
		Cluster: &job.Cluster{Id: "c1", Type: job.EC2},
		Job:     &job.Job{Id: "j1", Name: "demo"},
		BaseURL: "https://girder.example.com/api/v1",
		Params: map[string]string{
			"numberOfSlots": "4",
		},
	}
	tmpl := "#!/bin/bash\n#$ -N {{.Job.Name}}\n#$ -pe orte {{.Params.numberOfSlots}}\ncurl {{.BaseURL}}/jobs/{{.Job.Id}}\n"
	got, err := render.Script(tmpl, ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "#$ -N demo") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "#$ -pe orte 4") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "curl https://girder.example.com/api/v1/jobs/j1") {
		t.Fatalf("got %q", got)
	}
}

func TestScriptRendersBaseURLAlias(t *testing.T) {
	ctx := render.Context{
		Cluster: &job.Cluster{Id: "c1"},
		Job:     &job.Job{Id: "j1"},
		BaseURL: "https://girder.example.com/api/v1",
	}
	got, err := render.Script("curl {{.base_url}}/jobs/{{.Job.Id}}/terminate\n", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "curl https://girder.example.com/api/v1/jobs/j1/terminate") {
		t.Fatalf("got %q", got)
	}
}

func TestScriptParseError(t *testing.T) {
	_, err := render.Script("{{.Unclosed", render.Context{})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
