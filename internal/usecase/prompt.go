package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/templodoabismo/pluma/internal/domain"
)

const systemPrompt = "Você é a Voz da Pluma, a escriba do Templo do Abismo. " +
	"Escreve em português do Brasil, com tom contemplativo, simbólico e acolhedor, " +
	"sem promessas sobrenaturais nem conselhos médicos ou financeiros."

type typeGuide struct {
	Name      string
	Structure string
	Length    string
}

var guides = map[domain.ContentType]typeGuide{
	domain.ContentTypeRitual: {
		Name: "ritual dominical",
		Structure: "Um ritual prático em três partes claramente marcadas: " +
			"Abertura (preparação do espaço e do corpo), Prática (o núcleo do ritual, em passos) " +
			"e Encerramento (fechamento e intenção para a semana).",
		Length: "entre 250 e 400 palavras",
	},
	domain.ContentTypePoem: {
		Name:      "poema curto",
		Structure: "Um poema reflexivo de 4 a 8 versos sobre o despertar e a travessia interior.",
		Length:    "no máximo 80 palavras",
	},
	domain.ContentTypeVerse: {
		Name:      "verso",
		Structure: "Um único verso ou aforismo de uma a três linhas, denso e memorável.",
		Length:    "no máximo 30 palavras",
	},
	domain.ContentTypeReflection: {
		Name: "reflexão",
		Structure: "Uma reflexão discursiva em prosa, com dois ou três parágrafos, " +
			"que desenvolve uma ideia e termina com um convite à prática no dia. " +
			"Não escreva em versos e não use a estrutura de ritual.",
		Length: "entre 150 e 250 palavras",
	},
}

// BuildPrompt composes the system and user messages for a content type.
func BuildPrompt(contentType domain.ContentType, date time.Time) (string, string) {
	guide, ok := guides[contentType]
	if !ok {
		guide = guides[domain.ContentTypeReflection]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("### Tarefa\nEscreva um(a) %s para publicação em %s.\n\n", guide.Name, date.Format("02/01/2006")))
	sb.WriteString("### Estrutura\n")
	sb.WriteString(guide.Structure)
	sb.WriteString("\n\n### Extensão\n")
	sb.WriteString(guide.Length)
	sb.WriteString("\n\n### Formato de saída\n")
	sb.WriteString("Responda somente com um objeto JSON, sem comentários nem blocos de código, com as chaves:\n")
	sb.WriteString(`{"title": "título curto", "content": "o texto completo", "author": "` + domain.DefaultAuthor + `"}`)
	sb.WriteString("\n")

	return systemPrompt, sb.String()
}
