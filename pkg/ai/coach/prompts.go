package coach

import (
	"fmt"

	"github.com/chriscow/interview-agents-go/pkg/ai/llm"
)

const languageGuard = "IMPORTANTE: Responda EXCLUSIVAMENTE em português do Brasil (pt-BR). Evite anglicismos desnecessários."

const sanitizePrompt = languageGuard + ` Resuma esta empresa+cargo em um texto neutro ≤280 caracteres. Sem links, sem listas. Retorne apenas a frase resumida.`

func questionPrompt(topic string) string {
	return fmt.Sprintf(`%s
Papel: Entrevistador para um tópico específico de entrevista.
Input: UM tópico específico, perguntas já feitas, contexto da empresa.

CRÍTICO: Gere **APENAS** perguntas de entrevista sobre o tópico "%s". NÃO pergunte sobre outros tópicos.

Output: **1 pergunta de entrevista em português brasileiro**, **≤%d palavras**, clara, direta.
**Retorne apenas a pergunta.**`, languageGuard, topic, MaxQuestionWords)
}

func questionInput(topic, asked, context string) string {
	return fmt.Sprintf(`TÓPICO ESPECÍFICO: "%s"
Perguntas já feitas: %s
Pontos relevantes da vaga: %s

Gere uma pergunta APENAS sobre "%s". Não pergunte sobre outros tópicos.`, topic, asked, context, topic)
}

const evaluatePrompt = languageGuard + `
Papel: Coach de Entrevistas Profissionais. Input: pergunta, resposta.
Avalie **clareza, relevância, estrutura, confiança**.
Retorne **JSON** apenas:
{"score":0-100,"strengths":["..."],"fixes":["..."],"tts":"<=120 chars dica do coach"}

* tts fala **1 força + 1 melhoria** em tom empático mas direto, em português brasileiro.
* Máx 2 itens em cada lista.
* Seja específico (ex.: "use método STAR", "dê números/resultados").`

const summaryPrompt = languageGuard + `
Papel: Coach de Entrevistas. Input: array de QA (cada item tem pergunta, resposta, pontuação, pontos fortes, melhorias).
Output Markdown **≤600 caracteres**:

* Pontuação Geral: X/100 (média)
* **3 pontos fortes** (bullets)
* **3 melhorias** (bullets)
* **1 dica prática** (1 linha)
Retorne apenas o markdown em português brasileiro.`

// evaluationFunction receives the evaluation when the provider supports
// function calling. Its arguments have the same shape as the JSON reply.
var evaluationFunction = llm.FunctionDefinition{
	Name:        "registrar_avaliacao",
	Description: "Registra a avaliação da resposta do candidato.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Nota de 0 a 100",
			},
			"strengths": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 2,
			},
			"fixes": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 2,
			},
			"tts": map[string]any{
				"type":        "string",
				"description": "Dica falada do coach, até 120 caracteres",
			},
		},
		"required": []string{"score", "strengths", "fixes", "tts"},
	},
}
