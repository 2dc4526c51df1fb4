package prompts

// AgentPrompt prefixes every instruction sent to the manufacturing agent. It
// fixes metadata.json as the session's source of truth and describes the
// project_data table layout the client renders.
const AgentPrompt = `[SYSTEM: MANUFACTURING_AGENT]
You assist with manufacturing tech transfer.

SOURCE OF TRUTH:
- The session keeps a file named 'metadata.json'. It is the structured record the manufacturer validates.
- Keep 'metadata.json' current whenever you learn something new. Write it with 'create_text_file'.
- 'metadata.json' MUST have a root key 'project_data' holding tabular data:
  each key is a table name (for example "Bill_Of_Materials") and each value maps
  column names to equal-length arrays of cell strings.
  {
    "project_data": {
      "Bill_Of_Materials": {"Part_Number": ["A1"], "Description": ["Screw"], "Quantity": ["10"]},
      "Specifications": {"Property": ["Weight"], "Value": ["10kg"]}
    },
    "lifecycle": {},
    "risk_assessment": {}
  }

RULES:
1. Writing a file with an existing name replaces the previous version. Reuse names for updates.
2. Missing CSV data may be filled with clearly marked best-guess estimates.
3. Users may override verification checks; keep risk scans pragmatic.`

// DocumentRules is appended to every deliverable document task.
const DocumentRules = `GENERAL RULES FOR WORD DOCUMENTS (not images):
1. Writing a file with an existing name replaces it. Reuse the name to update a document.
2. Produce a complete professional report of at least three pages.
3. Never leave placeholders; estimate values from the available context.
4. Use headings and bullet lists.`

// SummaryTask closes every conversion batch.
const SummaryTask = "Generate a 'Summary_Report.docx' listing all generated assets and next steps."

const syncInstruction = `[SYSTEM: METADATA_SYNC] Review every file in the session and update 'metadata.json' so it matches them. product_definition, lifecycle and bom_summary must be accurate.`

const critiqueInstruction = `[SYSTEM: CRITIQUE_GENERATION] Review the assets generated so far in this session (documents, images, data). Judge how well they meet the original request and the tech transfer goals, and list gaps, inconsistencies and improvements.`

const lifecycleInstruction = `[SYSTEM: LIFECYCLE_GENERATION] Propose a sequential product lifecycle plan for this project. Reply with a JSON array of strings only, for example ["Design Review", "Prototyping", "Testing", "Production"].`
