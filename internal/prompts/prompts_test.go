package prompts

import (
	"strings"
	"testing"
)

func TestConversionTaskOrder(t *testing.T) {
	c := Conversion{
		ProjectID:     "p1",
		Start:         StartBOM,
		TargetColumns: []string{"Part Number", "Quantity"},
		Documents:     []string{DocDFM, "Custom Thing"},
	}
	tasks, err := c.Tasks()
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
	if !strings.Contains(tasks[0], "METADATA_INIT") || !strings.Contains(tasks[0], `"projectId":"p1"`) {
		t.Fatalf("first task should seed metadata: %q", tasks[0])
	}
	if !strings.Contains(tasks[1], "GOAL: Part Number, Quantity") {
		t.Fatalf("analysis task missing goal: %q", tasks[1])
	}
	if !strings.Contains(tasks[2], "DFM_Analysis_Report.docx") {
		t.Fatalf("unexpected document task: %q", tasks[2])
	}
	if !strings.Contains(tasks[3], "detailed report for Custom Thing") {
		t.Fatalf("unknown document should fall back: %q", tasks[3])
	}
	if tasks[4] != SummaryTask {
		t.Fatalf("last task should be the summary, got %q", tasks[4])
	}
}

func TestConversionStartTypes(t *testing.T) {
	desc, _ := Conversion{Start: StartDescription, Description: "a pump"}.Tasks()
	if !strings.Contains(desc[1], `"a pump"`) {
		t.Fatalf("description not used: %q", desc[1])
	}
	sketch, _ := Conversion{Start: StartSketch}.Tasks()
	if !strings.Contains(sketch[1], "sketches") {
		t.Fatalf("sketch start not used: %q", sketch[1])
	}
	noDesc, _ := Conversion{Start: StartDescription}.Tasks()
	if !strings.Contains(noDesc[1], "uploaded technical files") {
		t.Fatalf("description start without text should analyze files: %q", noDesc[1])
	}
}

func TestParseStartType(t *testing.T) {
	if got, err := ParseStartType(""); err != nil || got != StartBOM {
		t.Fatalf("empty = %q, %v", got, err)
	}
	if got, err := ParseStartType(" Sketch "); err != nil || got != StartSketch {
		t.Fatalf("sketch = %q, %v", got, err)
	}
	if _, err := ParseStartType("cad"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMetadataTasksCarryAgentPrompt(t *testing.T) {
	tasks := MetadataTasks()
	if len(tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if !strings.HasPrefix(task, AgentPrompt) {
			t.Fatalf("task missing agent prompt: %q", task[:40])
		}
	}
}
