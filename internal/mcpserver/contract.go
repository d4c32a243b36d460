package mcpserver

// TodoFormatContract describes the todo file layout for LLM clients that
// read or edit it.
const TodoFormatContract = `# GitToDo File Format

The todo list is a single UTF-8 Markdown file kept in a git repository.

## Structure

` + "```" + `markdown
## Home
* fix sink
* call mom [@remind_at 2026-10-14 17:30:00]

## Work
* ship release
` + "```" + `

## Rules

1. **Sections** start with ` + "`## `" + ` followed by the section name.
2. **Todos** are the non-blank lines below a heading, one per line, written as
   ` + "`* text`" + `. The bullet is added on write and hidden on listing.
3. **A blank line ends a section.** Lines after it belong to no section until
   the next heading.
4. **Line numbers** are zero-based positions in the file. Listings show them as
   ` + "`<line> - <text>`" + `. They shift whenever a line above is added or removed.
5. **New todos go first** in their section. Sections are created at the end of
   the file when missing.
6. **Empty sections are removed** whenever a todo is marked done or moved.
7. **Headings can't be marked done.**

## Reminders

- Write ` + "`@remindme <when>`" + ` in the text when adding a todo. Durations:
  ` + "`in 2 hours`" + `, ` + "`in ten mins`" + `, ` + "`3 days`" + `, ` + "`1 week`" + `, ` + "`2 months`" + `.
  Clock hours: ` + "`9 pm`" + `, ` + "`7am`" + `. Words: ` + "`morning`" + `, ` + "`afternoon`" + `,
  ` + "`tonight`" + `, ` + "`tomorrow`" + `, ` + "`weekend`" + `. Spanish works too
  (` + "`dos horas`" + `, ` + "`finde`" + `, ` + "`noche`" + `).
- A time that has already passed today moves to the same time tomorrow.
- The resolved time is stored as a marker ` + "`[@remind_at YYYY-MM-DD HH:MM:SS]`" + `
  at the end of the line, in the server's local time.
- A reminder is sent once, when its time comes, to the configured chat.
  Marking the todo done cancels it.
`
