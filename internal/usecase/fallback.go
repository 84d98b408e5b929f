package usecase

import "github.com/templodoabismo/pluma/internal/domain"

type fallbackText struct {
	Title   string
	Content string
	Author  string
}

var fallbacks = map[domain.ContentType]fallbackText{
	domain.ContentTypeRitual: {
		Title: "Ritual do Limiar Dominical",
		Content: "Abertura: acenda uma vela em silêncio e sente-se voltado para o leste. " +
			"Respire sete vezes, deixando cada expiração levar um peso da semana que passou.\n\n" +
			"Prática: com os olhos fechados, visualize um poço sem fundo diante de você. " +
			"Nomeie em voz baixa aquilo que deseja entregar ao abismo e aquilo que deseja trazer de volta. " +
			"Permaneça alguns minutos escutando o eco dessas palavras.\n\n" +
			"Encerramento: agradeça ao silêncio, apague a vela e anote uma única frase que guiará a nova semana.",
		Author: domain.DefaultAuthor,
	},
	domain.ContentTypePoem: {
		Title: "Aurora no Abismo",
		Content: "Antes que o sol se lembre do seu nome,\n" +
			"o abismo sussurra o que a noite guardou.\n" +
			"Desperta devagar: cada sombra que some\n" +
			"é uma porta que a alma atravessou.",
		Author: domain.DefaultAuthor,
	},
	domain.ContentTypeVerse: {
		Title:   "Verso da Pluma",
		Content: "A pluma não escreve o caminho;\nela apenas lembra que ele existe.",
		Author:  domain.DefaultAuthor,
	},
	domain.ContentTypeReflection: {
		Title: "Sobre o Silêncio que Responde",
		Content: "Há perguntas que não pedem resposta, pedem tempo. " +
			"Quando insistimos em respostas imediatas, confundimos ruído com sabedoria. " +
			"O abismo não é ausência, é espaço: o lugar onde o que somos ainda não foi decidido.\n\n" +
			"Hoje, em vez de buscar certezas, observe o que permanece quando você para de procurar. " +
			"Talvez a resposta já esteja ali, esperando que o silêncio termine de falar.",
		Author: domain.DefaultAuthor,
	},
}

// FallbackFor returns the hand-written text for a content type.
func FallbackFor(t domain.ContentType) (title, content, author string) {
	f, ok := fallbacks[t]
	if !ok {
		f = fallbacks[domain.ContentTypeReflection]
	}
	return f.Title, f.Content, f.Author
}
