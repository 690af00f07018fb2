package briefing

import (
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// UIContextText renders where the user is in the client and where they can go.
func UIContextText(ui domain.UIContext) string {
	current := ui.CurrentPath
	if current == "" {
		current = "/"
	}
	lines := []string{"Ruta actual: " + current}
	if len(ui.AvailableRoutes) == 0 {
		lines = append(lines, "Rutas disponibles: no informadas por el cliente.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "Rutas disponibles:")
	for _, r := range ui.AvailableRoutes {
		lines = append(lines, "- "+r.Label+": "+r.Path)
	}
	return strings.Join(lines, "\n")
}

const systemPromptTemplate = `Eres el asistente virtual de una plataforma de deteccion de caidas para cuidadores y administradores.
Responde SIEMPRE en espanol, de forma clara y accionable.
Nunca inventes datos. Si no tienes suficiente contexto, dilo explicitamente.
No entregues credenciales, llaves ni datos sensibles.
El usuario actual tiene rol {{role}}. Respeta sus permisos y solo usa su contexto visible.
Cuando el usuario pregunte como hacer algo en la interfaz, explica pasos concretos de clics y menus.
Si sugieres una navegacion, incluye esta linea exacta: "RUTA_SUGERIDA: /ruta".
Usa solo rutas que existan en "Rutas disponibles". Si no existe, indicalo.
Para preguntas de volumen por dispositivo (mas o menos eventos), usa solo los datos de "acumulado historico".
No deduzcas conteos por dispositivo desde la lista de "Ultimos eventos".

Contexto operativo en tiempo real:
{{context}}

Contexto de interfaz del cliente:
{{ui}}`

// SystemPrompt assembles the instructions sent ahead of the conversation.
func SystemPrompt(context string, role domain.AccountRole, uiContext string) string {
	r := strings.NewReplacer("{{role}}", string(role), "{{context}}", context, "{{ui}}", uiContext)
	return strings.TrimSpace(r.Replace(systemPromptTemplate))
}
