package chunker

import (
	"bytes"
	"text/template"
)

var promptTemplate = template.Must(template.New("chunking").Parse(`You organize management knowledge for an AI retrieval system.

Split the document below into chunks that work well for semantic search.

DOCUMENT: {{.Filename}}
CONTENT:
{{.Content}}

REQUIREMENTS:
1. Create {{.MinChunks}}-{{.MaxChunks}} chunks of {{.MinWords}}-{{.MaxWords}} words each.
2. Every chunk must stand on its own and start with a context header line
   such as "CONTEXT: <Framework Name> - <Section>".
3. Give every chunk rich metadata.
4. Focus on management frameworks, processes and actionable guidance.

Reply with a single JSON object in exactly this shape:
{
  "document_analysis": {
    "main_framework": "Name of the primary framework or concept",
    "category": "Performance Management | Leadership | Communication | ...",
    "key_topics": ["topic1", "topic2"]
  },
  "chunks": [
    {
      "chunk_id": "short_unique_id",
      "content": "CONTEXT: Framework Name - Section\n\nChunk text...",
      "metadata": {
        "framework": "Framework name",
        "category": "Performance Management",
        "section": "Specific section name",
        "keywords": ["keyword1", "keyword2", "keyword3"],
        "language": "english | hebrew",
        "chunk_type": "framework_explanation | steps | examples | guidelines"
      }
    }
  ]
}

Keywords must be specific management terms. Detect the language of each chunk.
If the document is bilingual, create separate chunks per language.`))

type promptData struct {
	Filename  string
	Content   string
	MinChunks int
	MaxChunks int
	MinWords  int
	MaxWords  int
}

// BuildPrompt renders the segmentation request for one document.
func BuildPrompt(filename, content string, target WordRange) string {
	var buf bytes.Buffer
	// the template is static and promptData cannot fail to render
	_ = promptTemplate.Execute(&buf, promptData{
		Filename:  filename,
		Content:   content,
		MinChunks: 3,
		MaxChunks: 8,
		MinWords:  target.Min,
		MaxWords:  target.Max,
	})
	return buf.String()
}
