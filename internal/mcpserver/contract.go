package mcpserver

// NoteFormatContract describes the Markdown note format vaultlens reads
// when it builds selections. LLM consumers should follow it when creating
// notes.
const NoteFormatContract = `# vaultlens Note Format Contract

vaultlens selects notes by folder, by tag or as daily notes, and orders
them by creation time, modification time or name.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the first H1
tags:                               # OPTIONAL – YAML list or "a, b" string
  - project/alpha
  - meeting-notes
created: 2026-10-21T09:00:00Z      # OPTIONAL – overrides the creation time
---

Body text in standard Markdown. Inline #tags are picked up too.
` + "```" + `

## Rules

1. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
2. **Tags** are written without spaces. Nested tags use ` + "`" + `/` + "`" + `
   (` + "`" + `#project/alpha` + "`" + `); selecting ` + "`" + `#project` + "`" + ` does not match ` + "`" + `#project/alpha` + "`" + `.
3. **Inline tags** inside code spans or fenced code blocks are ignored.
4. **` + "`" + `created` + "`" + `** accepts an ISO-8601 date or datetime. Without it the
   creation time is the first time vaultlens saw the file.
5. **Daily notes** live in the configured daily-notes folder and are named
   by the configured date format (default ` + "`" + `YYYY-MM-DD` + "`" + `). Use the
   ` + "`" + `create_daily_note` + "`" + ` tool rather than creating them by hand.
6. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
title: Weekly standup 2026-10-19
tags: [meeting-notes, project/alpha]
created: 2026-10-19
---

# Weekly standup 2026-10-19

Attendees: Alice, Bob. #followup
` + "```" + `
`
