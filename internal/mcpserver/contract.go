package mcpserver

// NoteFormatContract describes the canonical Markdown document produced
// by archival. LLM consumers saving notes directly should follow it.
const NoteFormatContract = `# Othala Note Format Contract

Every note archived into the Knowledge Base follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED
date: 2025-07-03                   # REQUIRED – ISO YYYY-MM-DD
tags:                              # OPTIONAL – YAML list
  - tag-one
  - tag-two
author: user                       # provenance; "pull-mode" for generated notes
source: inbox                      # provenance; "gpt-pull-mode" for generated notes
type: note
status: processed
language: en
summary: One-sentence summary      # OPTIONAL
uid: human-readable-title-2025-07-03
linked_files:                      # files copied alongside the note
  - diagram.png
---

Body text in standard Markdown, exactly as captured.
` + "```" + `

## Rules

1. **YAML front matter is mandatory.** The ` + "```" + `---` + "```" + ` fences are the first
   thing in the file.
2. **` + "`" + `title` + "`" + ` and ` + "`" + `date` + "`" + ` are required.** The date places the note in
   its ` + "`" + `YYYY-MM/` + "`" + ` Knowledge Base partition.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `meeting-notes` + "`" + `).
4. **Linked files** may be referenced four ways: ` + "`" + `![[embed.png]]` + "`" + `,
   ` + "`" + `[[wiki-link.pdf]]` + "`" + `, ` + "`" + `[label](./local.md)` + "`" + `, ` + "`" + `![alt](./image.png)` + "`" + `.
   Local references are copied next to the archived note; the link text
   itself is never rewritten.
5. **File names** derive from the date and title:
   ` + "`" + `2025-07-03_human_readable_title.md` + "`" + `.
6. **Encoding** is UTF-8.

## Example

` + "```" + `markdown
---
title: Weekly Team Meeting
date: 2025-07-03
tags:
  - meeting
  - team
author: user
source: inbox
type: note
status: processed
language: en
uid: weekly-team-meeting-2025-07-03
linked_files:
  - diagram.png
---

# Weekly Team Meeting

Discussed the roadmap. See ![[diagram.png]] for the architecture.
` + "```" + `
`
