package prompts

import (
	"fmt"
	"sort"
)

// Deliverable documents the conversion batch can request.
const (
	DocProduction   = "Production"
	DocPilotRuns    = "Pilot Runs"
	DocInstallation = "Installation & Testing"
	DocProcessDev   = "Process Development"
	DocDFM          = "Design for manufacturing"
	DocCapabilities = "Review & Capabilities Analysis"
	DocVisualAids   = "Visual Aids"
)

var documentInstructions = map[string]string{
	DocProduction: `[SYSTEM: DOC_GENERATION]
Write "Mass_Production_Plan.docx", an execution plan for volume manufacturing.
SECTIONS:
- Scaling from pilot to mass production
- Quality control points and high-volume inspection criteria
- Line balancing with takt time and station assignments
- Supply chain, bulk material handling and logistics`,
	DocPilotRuns: `[SYSTEM: DOC_GENERATION]
Write "Pilot_Run_Report.docx" covering validation and first data collection.
SECTIONS:
- Pilot objectives (yield, speed, quality)
- Batch configuration and setups
- Measurement plan and key metrics
- Expected failure modes and how to monitor them`,
	DocInstallation: `[SYSTEM: DOC_GENERATION]
Write "Installation_and_SAT_Protocol.docx" as field work instructions.
SECTIONS:
- Site preparation (power, air, floor space)
- Rigging and handling
- IQ/OQ/PQ acceptance test steps
- Lockout/tagout procedures for this equipment`,
	DocProcessDev: `[SYSTEM: DOC_GENERATION]
Write "Process_Development_Study.docx" on process parameter optimization.
SECTIONS:
- Design of experiments setup (temperature, pressure, speed)
- Process window with upper and lower control limits
- Optimization results and recommended settings
- Material interaction analysis`,
	DocDFM: `[SYSTEM: DOC_GENERATION]
Write "DFM_Analysis_Report.docx" critiquing the design for cost and assembly.
SECTIONS:
- Tolerance analysis
- Part consolidation opportunities
- Material cost versus performance
- Tool clearance and assembly ergonomics`,
	DocCapabilities: `[SYSTEM: DOC_GENERATION]
Write "Capabilities_Gap_Analysis.docx" matching requirements to vendor capability.
SECTIONS:
- Requirement matrix against current capabilities
- Identified gaps
- Gap risk scoring
- Plan to close each gap (training, equipment, outsourcing)`,
	DocVisualAids: `[SYSTEM: VISUAL_GENERATION]
Use the 'generate_image' tool to create three technical diagrams:
1. "assembly_exploded_view.png" showing how parts relate
2. "process_flow_diagram.png" as a block diagram of manufacturing steps
3. "finished_product_render.png" as a photorealistic render of the product
Keep them high resolution in a clean CAD or blueprint style.`,
}

// Documents lists the known deliverable names in a stable order.
func Documents() []string {
	names := make([]string, 0, len(documentInstructions))
	for name := range documentInstructions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocumentTask builds the task for one deliverable. Unknown names get a
// generic report instruction.
func DocumentTask(name string) string {
	instruction, ok := documentInstructions[name]
	if !ok {
		instruction = fmt.Sprintf("[SYSTEM: DOC_GENERATION] Write a detailed report for %s.", name)
	}
	return instruction + "\n\n" + DocumentRules
}
