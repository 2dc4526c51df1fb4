package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StartType is how the user begins a conversion.
type StartType string

const (
	StartBOM         StartType = "bom"
	StartDescription StartType = "description"
	StartSketch      StartType = "sketch"
)

// ParseStartType normalizes raw. Empty input means StartBOM.
func ParseStartType(raw string) (StartType, error) {
	switch StartType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StartBOM:
		return StartBOM, nil
	case StartDescription:
		return StartDescription, nil
	case StartSketch:
		return StartSketch, nil
	default:
		return "", fmt.Errorf("unknown start type %q (want bom, description or sketch)", raw)
	}
}

// Conversion describes a conversion batch.
type Conversion struct {
	ProjectID     string
	Start         StartType
	Description   string
	TargetColumns []string
	Documents     []string
}

type initialMetadata struct {
	ProjectID         string            `json:"projectId,omitempty"`
	Revision          string            `json:"revision"`
	Status            string            `json:"status"`
	ProductDefinition productDefinition `json:"product_definition"`
	Lifecycle         metadataLifecycle `json:"lifecycle"`
	BOMSummary        bomSummary        `json:"bom_summary"`
	RiskAssessment    riskAssessment    `json:"risk_assessment"`
}

type productDefinition struct {
	Description    string         `json:"description"`
	Specifications map[string]any `json:"specifications"`
}

type metadataLifecycle struct {
	Stage string   `json:"stage"`
	Steps []string `json:"steps"`
}

type bomSummary struct {
	TotalParts    int      `json:"total_parts"`
	CriticalItems []string `json:"critical_items"`
}

type riskAssessment struct {
	Score  string   `json:"score"`
	Issues []string `json:"issues"`
}

// Tasks expands c into the ordered task list: metadata init, core analysis,
// one task per selected document and a closing summary.
func (c Conversion) Tasks() ([]string, error) {
	description := strings.TrimSpace(c.Description)
	seed := initialMetadata{
		ProjectID: c.ProjectID,
		Revision:  "A.1",
		Status:    "DRAFT",
		ProductDefinition: productDefinition{
			Description:    description,
			Specifications: map[string]any{},
		},
		Lifecycle:      metadataLifecycle{Stage: "Ingestion", Steps: []string{}},
		BOMSummary:     bomSummary{CriticalItems: []string{}},
		RiskAssessment: riskAssessment{Score: "Pending", Issues: []string{}},
	}
	if seed.ProductDefinition.Description == "" {
		seed.ProductDefinition.Description = "Extracted from assets"
	}
	encoded, err := json.Marshal(seed)
	if err != nil {
		return nil, fmt.Errorf("encode initial metadata: %w", err)
	}

	tasks := make([]string, 0, len(c.Documents)+3)
	tasks = append(tasks, withAgent(fmt.Sprintf(
		"[SYSTEM: METADATA_INIT] Create the initial 'metadata.json' with this content: %s. It is the project's source of truth.", encoded)))
	tasks = append(tasks, c.analysisTask(description))
	for _, doc := range c.Documents {
		if doc = strings.TrimSpace(doc); doc != "" {
			tasks = append(tasks, DocumentTask(doc))
		}
	}
	tasks = append(tasks, SummaryTask)
	return tasks, nil
}

func (c Conversion) analysisTask(description string) string {
	columns := strings.Join(c.TargetColumns, ", ")
	var b strings.Builder
	fmt.Fprintf(&b, "[SYSTEM: TECH_TRANSFER_INIT]\nGOAL: %s\nINSTRUCTION:\n", columns)
	switch {
	case c.Start == StartDescription && description != "":
		fmt.Fprintf(&b, "1. Treat this PRODUCT DESCRIPTION as the source of truth:\n%q\n", description)
		fmt.Fprintf(&b, "2. Design a plausible 'BOM_Standardized.csv' with columns: %s.\n", columns)
	case c.Start == StartSketch:
		b.WriteString("1. Study the uploaded sketches or images to understand the product structure.\n")
		fmt.Fprintf(&b, "2. Derive a 'BOM_Standardized.csv' with columns: %s from the visual analysis.\n", columns)
	default:
		b.WriteString("1. Analyze the uploaded technical files (BOM, specifications).\n")
		fmt.Fprintf(&b, "2. Produce a 'BOM_Standardized.csv' with columns: %s.\n", columns)
	}
	b.WriteString("3. Copy everything extracted into 'metadata.json', fully populating product_definition, lifecycle and bom_summary.\n")
	b.WriteString("4. Write a 'data_summary.csv' of the main parts list.\n")
	b.WriteString("5. Extract the key technical parameters and manufacturing requirements.\n")
	b.WriteString("6. Writing a file with an existing name replaces it, so keep file names stable across updates.\n")
	return b.String()
}

// MetadataTasks is the fixed metadata generation batch.
func MetadataTasks() []string {
	steps := []string{
		"[SYSTEM: METADATA_INIT] Initialize or reset 'metadata.json' so product_definition, bom_summary, lifecycle and risk_assessment all exist with empty defaults.",
		"[SYSTEM: METADATA_SPECS] Read every uploaded document and extracted text and fill 'product_definition' in 'metadata.json' with the description and specifications found.",
		"[SYSTEM: METADATA_BOM] Read the BOM files (Excel/CSV) and technical documents and update 'bom_summary' in 'metadata.json' with total part counts and critical items.",
		"[SYSTEM: METADATA_RISK] Assess risk from the known specifications and complexity and update 'risk_assessment' in 'metadata.json'.",
		"[SYSTEM: METADATA_LIFECYCLE] Recommend a product lifecycle for this project and update 'lifecycle' in 'metadata.json'.",
	}
	for i, step := range steps {
		steps[i] = withAgent(step)
	}
	return steps
}

// Sync asks the agent to refresh metadata.json from the current files.
func Sync() string { return withAgent(syncInstruction) }

// Critique asks the agent to review the generated assets.
func Critique() string { return withAgent(critiqueInstruction) }

// Lifecycle asks the agent for lifecycle steps as a JSON string array.
func Lifecycle() string { return withAgent(lifecycleInstruction) }

func withAgent(instruction string) string {
	return AgentPrompt + "\n\n" + instruction
}
