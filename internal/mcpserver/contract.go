package mcpserver

// EventMetadataContract documents the metadata keys Planboard reads from and
// writes to calendar events, for LLM consumers that create events.
const EventMetadataContract = `# Planboard Event Metadata

Calendar events carry a free-form JSON ` + "`" + `metadata` + "`" + ` object. Planboard reads
and writes the keys below; anything else is stored untouched.

## Task linkage

| key | type | meaning |
|---|---|---|
| ` + "`" + `taskId` + "`" + ` | string or number | Links the event to a task. Numbers and strings compare by their trimmed text, so ` + "`" + `42` + "`" + ` and ` + "`" + `"42"` + "`" + ` are the same task. |

A task counts as **scheduled** when at least one event with a parseable
start links to it. Scheduled tasks drop out of the autoplan list and count
towards task coverage.

## Written by schedule_task

| key | value |
|---|---|
| ` + "`" + `taskId` + "`" + ` | id of the task |
| ` + "`" + `taskStatus` + "`" + ` | task status at scheduling time |
| ` + "`" + `taskPriority` + "`" + ` | task priority at scheduling time |
| ` + "`" + `taskDueDate` + "`" + ` | raw due date of the task |
| ` + "`" + `taskEstimatedHours` + "`" + ` | estimate in hours, or null |
| ` + "`" + `taskOwner` + "`" + ` | owner name, email or id (omitted when none) |
| ` + "`" + `taskSummary` + "`" + ` | description, whitespace collapsed, at most 280 characters |

## Written by calendar imports

| key | value |
|---|---|
| ` + "`" + `icsUid` + "`" + ` | UID of the source VEVENT |
| ` + "`" + `icsInstance` + "`" + ` | RFC 3339 start of a recurring instance |
| ` + "`" + `description` + "`" + ` | DESCRIPTION of the source VEVENT |

An ` + "`" + `X-PLANBOARD-TASK-ID` + "`" + ` property on an imported VEVENT becomes ` + "`" + `taskId` + "`" + `.

## Categories

` + "`" + `event` + "`" + ` (default), ` + "`" + `workshop` + "`" + `, ` + "`" + `deadline` + "`" + `, ` + "`" + `holiday` + "`" + `, ` + "`" + `focus` + "`" + `.
Only ` + "`" + `focus` + "`" + ` events count towards focus coverage.

## Timestamps

ISO 8601. Values with an offset are absolute; values without one (including
plain ` + "`" + `YYYY-MM-DD` + "`" + ` dates) are read in the project timezone.
`
