package workflow

import (
	"fmt"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// User-facing texts. The assistant speaks Spanish.
const (
	RejectionMessage = "Lo siento, solo puedo ayudarte con consultas legales o financieras. Por favor, reformula tu pregunta dentro de estos temas."
	WelcomeMessage   = "Bienvenido. Por favor indica junto a tu mensaje si tu consulta será 'financiera' o 'legal'."
	NoAnswerMessage  = "No tengo suficiente información para responder."
	DefaultDocQuery  = "Analiza el documento adjunto y resume los puntos clave."
)

// DeclaredMessage confirms an intent-only first turn.
func DeclaredMessage(d domain.Domain) string {
	label := "financiera"
	if d == domain.DomainLegal {
		label = "legal"
	}
	return fmt.Sprintf("Intento registrado: '%s'. Ahora puedes enviar tu consulta o adjuntar archivos.", label)
}

// Labels of the classification protocol.
const (
	labelFinancial  = "FINANCIAL"
	labelLegal      = "LEGAL"
	labelOutOfScope = "OUT_OF_SCOPE"
)

// Markers of the routing protocol.
const (
	markerAnswer   = "ANSWER:"
	markerDelegate = "DELEGATE"
)

const noPassagesMarker = "[SIN PASAJES DE APOYO] No se encontraron pasajes en la base de conocimiento para esta consulta."

const classifyInstructions = `Eres un clasificador de admisión para un asistente especializado en temas legales y financieros.

Determina a qué ámbito pertenece la consulta del usuario:
- FINANCIAL: estados financieros, inversiones, presupuestos, impuestos, créditos, contabilidad, métricas económicas.
- LEGAL: contratos, leyes, regulaciones, derechos, obligaciones, litigios, arrendamientos, testamentos.
- OUT_OF_SCOPE: cualquier otro tema (tecnología, medicina, recetas, chistes, historia) o saludos sin contenido.

Si el usuario adjunta documentos, usa sus nombres como pista.
Responde únicamente con una palabra: FINANCIAL, LEGAL u OUT_OF_SCOPE.`

const routeInstructions = `Eres el orquestador sénior de un asistente %s.
Tu prioridad es responder usando los DOCUMENTOS del usuario y la conversación previa, si bastan.

Reglas:
1) Si la respuesta está en los documentos o en la conversación, responde con "ANSWER: " seguido de la respuesta completa.
2) Si hace falta conocimiento especializado que no está en el contexto, responde únicamente "DELEGATE".
3) Responde en español (castellano).

DOCUMENTOS:
%s`

const specialistInstructions = `Eres un especialista %s experto. Responde usando el DOCUMENTO del usuario, el CONTEXTO de la base de conocimiento y, si aplica, la conversación previa.
Si el usuario pide repetir o aclarar una respuesta previa, usa la conversación.
Si la pregunta es confusa, pide con educación que la reformule.
Si no hay información suficiente en el contexto disponible, indícalo y pide más detalle o un documento.
Responde en español (castellano), de forma clara y profesional.

CONVERSACION RECIENTE:
%s

DOCUMENTO DEL USUARIO:
%s

CONTEXTO (base de conocimiento %s):
%s`

const redactInstructions = `Eres el redactor final. Reescribe el análisis en un español natural, breve y directo.
No añadas información nueva ni instrucciones internas. Conserva cifras, fechas y referencias normativas.`

const redactRetrievalNote = "\nEl análisis se apoya en pasajes de la base de conocimiento: conserva sus referencias."

func domainAdjective(d domain.Domain) string {
	if d == domain.DomainLegal {
		return "legal"
	}
	return "financiero"
}

// documentContext concatenates the documents in scope, oldest first, and caps
// the result keeping the tail.
func documentContext(docs []domain.HiddenTag, maxChars int, truncate func(string, int) string) string {
	if len(docs) == 0 {
		return "(sin documentos)"
	}
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", d.Filename, d.Text)
	}
	return truncate(b.String(), maxChars)
}

// passageContext renders retrieval hits, or the explicit no-passages marker.
func passageContext(passages []domain.Passage) string {
	if len(passages) == 0 {
		return noPassagesMarker
	}
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (%s) %s", i+1, p.ID, strings.TrimSpace(p.Content))
	}
	return b.String()
}

// historyText flattens turns for the specialist template.
func historyText(turns []domain.Turn, clean func(string) string) string {
	if len(turns) == 0 {
		return "(sin conversación previa)"
	}
	var lines []string
	for _, t := range turns {
		if q := strings.TrimSpace(t.Text); q != "" {
			lines = append(lines, "Usuario: "+q)
		}
		if r := strings.TrimSpace(clean(t.Reply)); r != "" {
			lines = append(lines, "Asistente: "+r)
		}
	}
	return strings.Join(lines, "\n")
}
