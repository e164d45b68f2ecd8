package mcpserver

// ManifestFormatContract describes the export manifest layout that
// import_manifest accepts. Served to MCP clients as a resource so they
// can construct valid manifests without probing the HTTP API.
const ManifestFormatContract = `# VidUnpack Export Manifest Format

An export manifest is a single JSON document:

` + "```json" + `
{
  "version": 1,
  "generated_at_ms": 1735689600000,
  "project": {
    "id": "uuid",
    "title": "My project",
    "created_at_ms": 1735689600000
  },
  "consent": { "consented": true, "auto_confirm": false },
  "settings": { "think_enabled": true },
  "artifacts": [
    { "id": "uuid", "kind": "input_video", "path": "projects/<id>/media/...", "created_at_ms": 0 }
  ],
  "pool_items": [
    {
      "kind": "link",
      "title": "Source page",
      "source_url": "https://example.com/page",
      "license": null,
      "dedup_key": "url:https://example.com/page",
      "data_json": "{\"url\":\"https://example.com/page\"}",
      "selected": true
    }
  ]
}
` + "```" + `

Rules:

- 'version' is currently always 1.
- 'pool_items' is the only section restored on import; the other
  sections are informational. Every field of a pool item except 'kind'
  may be null or absent.
- 'kind' defaults to "link" on import. 'selected' defaults to true.
- 'dedup_key' defaults to the source URL; items sharing a dedup key
  collapse into one.

Importing a manifest creates a fresh project titled
"imported: <original title>".
`
