package mcpserver

// MarkerFormatContract describes the GTD space document format that LLM
// consumers should follow when reading or writing documents.
const MarkerFormatContract = `# GTD Space Marker Format

Documents are plain Markdown. Structured fields are written as inline
markers on their own line, usually under a ` + "`## Heading`" + ` named after the field.

## Layout

| directory | entity |
|---|---|
| ` + "`Projects/<name>/README.md`" + ` | project |
| ` + "`Projects/<name>/<action>.md`" + ` | action |
| ` + "`Habits/`" + ` | habit |
| ` + "`Areas of Focus/`" + ` | area |
| ` + "`Goals/`" + ` | goal |
| ` + "`Vision/`" + ` | vision |
| ` + "`Purpose & Principles/`" + ` | purpose |
| ` + "`Someday Maybe/`, `Cabinet/`" + ` | reference material |

The first ` + "`# `" + ` heading is the document title.

## Markers

` + "```" + `
[!singleselect:<type>:<value>]
[!multiselect:<type>:<v1>,<v2>]
[!checkbox:<type>:true|false]
[!datetime:<type>:YYYY-MM-DD or YYYY-MM-DDTHH:MM:SSZ]
[!references:<json array of paths>]
[!<horizon>-references:<json array of paths>]
[!<list>-list] / [!actions-list:<status>]
` + "```" + `

Single-select types and their values:

- ` + "`status`, `project-status`, `goal-status`" + `: in-progress, waiting, completed, cancelled
- ` + "`effort`" + `: small, medium, large, extra-large
- ` + "`habit-frequency`" + `: daily, every-other-day, twice-weekly, weekly, weekdays, biweekly, monthly
- ` + "`area-status`" + `: active, needs-attention, on-hold, completed
- ` + "`area-review-cadence`" + `: weekly, monthly, quarterly, annually
- ` + "`vision-horizon`" + `: 1-year, 2-years, 3-years, 5-years, 10-years

Habit status is a checkbox: ` + "`[!checkbox:habit-status:false]`" + `.

Date types ending in ` + "`_time`" + ` carry a time (` + "`due_date_time`, `focus_date_time`, `created_date_time`" + `).

Reference horizons: ` + "`areas`, `goals`, `vision`, `purpose`, `projects`, `habits`" + `.
Paths are relative to the space root and use forward slashes.

## Rules

1. Payload characters ` + "`& < > \" ' [ ] ,`" + ` are written as HTML entities.
2. Reference lists are compact JSON, or percent-encoded JSON when a path
   contains marker characters.
3. A habit keeps a ` + "`## History`" + ` table: ` + "`| Date | Time | Status | Action | Notes |`" + `.
4. Prefer the ` + "`build_document`" + ` tool to create entities so the
   canonical section order and defaults are applied.

## Example

` + "```" + `markdown
# Run a marathon

## Status
[!singleselect:goal-status:in-progress]

## Target Date
[!datetime:goal-target-date:2025-10-12]

## Areas References
[!areas-references:["Areas of Focus/Health.md"]]

## Created
[!datetime:created_date_time:2025-03-01T09:30:00Z]
` + "```" + `
`
