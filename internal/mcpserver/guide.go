package mcpserver

// MarkupGuide describes the Markdown subset the converter renders. Anything
// else passes through as literal text.
const MarkupGuide = `# Grimoire Markup Guide

Grimoire renders a deliberately small Markdown subset into a themed page.
Write notes with these constructs only; everything else stays literal.

## Blocks

One construct per line. The marker must start the line and be followed by text.

| Marker | Result |
|---|---|
| ` + "`# `" + ` | level 1 heading (the page is not wrapped in a paragraph) |
| ` + "`## `" + `, ` + "`### `" + `, ` + "`#### `" + ` | level 2 to 4 headings |
| ` + "`> `" + ` | single-line blockquote |
| ` + "`- `" + ` | list item, only when list conversion is enabled |

Blank lines separate paragraphs; single line breaks become ` + "`<br>`" + `.

## Inline

- ` + "`**bold**`" + ` then ` + "`*italic*`" + `, both on a single line.
- No code spans, links or escapes. An unpaired ` + "`*`" + ` stays as is.

## Tables

` + "```" + `markdown
| Name | HP |
|------|----|
| Goblin | 7 |
` + "```" + `

1. A header line starting and ending with ` + "`|`" + `.
2. A separator line right below it, made of ` + "`-`" + `, ` + "`:`" + `, spaces and ` + "`|`" + `.
3. At least one data line. The table ends at the first blank or non-pipe line.

Empty cells are dropped and column counts are not checked.

## Raw HTML

` + "`<div>`" + ` blocks pass through untouched and are styled by the theme. Useful
classes: ` + "`spell`" + `, ` + "`stat-block`" + `, ` + "`feature`" + `, ` + "`magic-item`" + `.

` + "```" + `html
<div class="spell"><h3>Fireball</h3><p>8d6 fire damage.</p></div>
` + "```" + `

## Frontmatter

A leading YAML, TOML or JSON frontmatter block is stripped before rendering.
Its ` + "`title`" + ` field names the conversion; otherwise the first ` + "`# `" + ` heading does.
`
