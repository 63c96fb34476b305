package mcpserver

// ScriptFormatContract describes the canonical script format that
// LLM consumers should follow when writing or editing user scripts.
const ScriptFormatContract = `# Tempura Script Format Contract

Every user script compiled by Tempura MUST follow this structure.

## Structure

` + "```" + `typescript
// One-line description of what the script does.
import { activeFile, notice } from "fry-tempura";

export function myCommand(): void {
  const file = activeFile();
  notice("working on " + file.basename);
}
` + "```" + `

## Rules

1. **Scripts are TypeScript files** (` + "`" + `.ts` + "`" + `) in the configured scripts folder.
   Plain ` + "`" + `.js` + "`" + ` files are accepted too and skip type stripping.
2. **The file stem is the registry name.** ` + "`" + `daily-note.ts` + "`" + ` registers as
   ` + "`" + `daily-note` + "`" + `; stems must be unique across the whole folder tree.
3. **The leading comment is the description.** A ` + "`" + `//` + "`" + ` line or ` + "`" + `/* */` + "`" + ` block
   at the top of the file is surfaced by list_scripts and search_scripts.
4. **Export named functions.** Exports become callable from templates as
   ` + "`" + `tp.user.tempura.<stem>.<export>(...)` + "`" + `. A ` + "`" + `default` + "`" + ` export is reachable
   under ` + "`" + `.default` + "`" + `.
5. **Import host accessors from ` + "`" + `fry-tempura` + "`" + `.** The library bundles into the
   artifact; subpath imports like ` + "`" + `fry-tempura/editor` + "`" + ` work as well.
6. **` + "`" + `obsidian` + "`" + ` imports stay external.** The host application provides that
   module at load time; never vendor it.
7. **Underscore-prefixed files are shared helpers.** ` + "`" + `_util.ts` + "`" + ` can be
   imported by scripts but never becomes a registry entry itself.
8. **Declaration files (` + "`" + `.d.ts` + "`" + `) are type support only** and are excluded
   from the registry.

## Available fry-tempura accessors

- Editor: ` + "`" + `getCursor` + "`" + `, ` + "`" + `setCursor` + "`" + `, ` + "`" + `getLine` + "`" + `, ` + "`" + `lastLine` + "`" + `, ` + "`" + `getSelection` + "`" + `,
  ` + "`" + `replaceSelection` + "`" + `, ` + "`" + `insertAtCursor` + "`" + `, ` + "`" + `activeEditor` + "`" + `
- Vault: ` + "`" + `activeFile` + "`" + `, ` + "`" + `fileByPath` + "`" + `, ` + "`" + `readFile` + "`" + `, ` + "`" + `readPath` + "`" + `, ` + "`" + `createFile` + "`" + `,
  ` + "`" + `appendToFile` + "`" + `
- Metadata: ` + "`" + `frontmatter` + "`" + `, ` + "`" + `frontmatterValue` + "`" + `, ` + "`" + `tags` + "`" + `
- Notifications: ` + "`" + `notice` + "`" + `, ` + "`" + `noticeError` + "`" + `

## Example

` + "```" + `typescript
// Appends a timestamped log line to the active note.
import { activeFile, appendToFile, notice } from "fry-tempura";

export async function logEntry(text: string): Promise<void> {
  const file = activeFile();
  await appendToFile(file, "\n- " + new Date().toISOString() + " " + text);
  notice("logged");
}
` + "```" + `

Invoke from a template: ` + "`" + `tp.user.tempura["log-entry"].logEntry("done")` + "`" + `
(bracket access for stems containing dashes).
`
