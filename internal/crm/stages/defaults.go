// internal/crm/stages/defaults.go
package stages

import "innovation-crm/internal/models"

// ColorOptions are the column colors offered when adding a stage.
var ColorOptions = []string{
	"bg-yellow-200 text-yellow-800 border-yellow-300",
	"bg-blue-200 text-blue-800 border-blue-300",
	"bg-red-200 text-red-800 border-red-300",
	"bg-green-200 text-green-800 border-green-300",
	"bg-orange-200 text-orange-800 border-orange-300",
	"bg-purple-200 text-purple-800 border-purple-300",
	"bg-pink-200 text-pink-800 border-pink-300",
	"bg-indigo-200 text-indigo-800 border-indigo-300",
	"bg-gray-200 text-gray-800 border-gray-300",
}

// DefaultStages returns a fresh copy of the board every new user starts with.
func DefaultStages() []models.PipelineStage {
	return []models.PipelineStage{
		{
			ID:    "mapeada",
			Name:  "Mapeada",
			Color: "bg-yellow-200 text-yellow-800 border-yellow-300",
			Order: 0,
		},
		{
			ID:               "selecionada",
			Name:             "Selecionada",
			Color:            "bg-blue-200 text-blue-800 border-blue-300",
			Order:            1,
			EmailSubject:     "{{senderCompany}} - Oportunidade de Colaboração com {{startupName}}",
			EmailTemplate:    "Olá {{startupName}},\n\nEspero que esteja bem! Sou {{senderName}} da {{senderCompany}}.\n\nTemos acompanhado o trabalho da {{startupName}} e ficamos impressionados com a solução que vocês desenvolveram. Acreditamos que há uma grande sinergia entre nossos objetivos e gostaríamos de explorar possibilidades de colaboração.\n\nGostaria de agendar uma conversa para conhecermos melhor a {{startupName}} e apresentarmos nossa empresa e nossos desafios.\n\nFico no aguardo do seu retorno.\n\nAtenciosamente,\n{{senderName}}",
			WhatsAppTemplate: "Olá! Sou {{senderName}} da {{senderCompany}}. Ficamos impressionados com a solução da {{startupName}} e gostaríamos de explorar uma possível colaboração. Podemos agendar uma conversa? 🚀",
		},
		{
			ID:               "contatada",
			Name:             "Contatada",
			Color:            "bg-red-200 text-red-800 border-red-300",
			Order:            2,
			EmailSubject:     "{{senderCompany}} - Próximos Passos com {{startupName}}",
			EmailTemplate:    "Olá {{startupName}},\n\nObrigado pelo retorno! Fico feliz em saber do interesse em nossa proposta de colaboração.\n\nPara darmos continuidade, gostaria de agendar uma reunião para:\n- Apresentarmos nossa empresa e nossos desafios\n- Conhecermos melhor a solução da {{startupName}}\n- Discutirmos possibilidades de parceria\n\nTeria disponibilidade para uma conversa na próxima semana?\n\nAguardo seu retorno.\n\nAtenciosamente,\n{{senderName}}",
			WhatsAppTemplate: "Ótimo! Que tal agendarmos uma reunião para apresentarmos nossos desafios e conhecermos melhor a solução da {{startupName}}? Teria disponibilidade na próxima semana? 📅",
		},
		{
			ID:               "entrevistada",
			Name:             "Entrevistada",
			Color:            "bg-green-200 text-green-800 border-green-300",
			Order:            3,
			EmailSubject:     "{{senderCompany}} - Avançando para POC com {{startupName}}",
			EmailTemplate:    "Olá {{startupName}},\n\nFoi um prazer conhecer melhor a equipe e a solução da {{startupName}} em nossa reunião.\n\nFicamos muito empolgados com as possibilidades de colaboração e gostaríamos de avançar para a próxima etapa: desenvolvimento de um Proof of Concept (POC).\n\nVamos preparar um briefing detalhado com os requisitos e objetivos do POC. Em breve entraremos em contato com mais informações.\n\nObrigado pelo tempo e dedicação!\n\nAtenciosamente,\n{{senderName}}",
			WhatsAppTemplate: "Excelente reunião! Ficamos empolgados com a {{startupName}} e queremos avançar para um POC. Em breve enviaremos o briefing detalhado. Obrigado! 🎯",
		},
		{
			ID:               "poc",
			Name:             "POC",
			Color:            "bg-orange-200 text-orange-800 border-orange-300",
			Order:            4,
			EmailSubject:     "{{senderCompany}} - Briefing POC {{startupName}}",
			EmailTemplate:    "Olá {{startupName}},\n\nParabéns! Chegamos à etapa de Proof of Concept.\n\nSegue em anexo o briefing detalhado com:\n- Objetivos do POC\n- Requisitos técnicos\n- Cronograma proposto\n- Critérios de avaliação\n\nEstamos ansiosos para ver a solução da {{startupName}} em ação e avaliar como podemos integrar essa inovação em nossos processos.\n\nQualquer dúvida, estou à disposição.\n\nVamos inovar juntos!\n\n{{senderName}}",
			WhatsAppTemplate: "Parabéns {{startupName}}! 🎉 Chegamos ao POC! Enviamos o briefing detalhado por email. Estamos ansiosos para ver a solução em ação! Vamos inovar juntos! 💡",
		},
	}
}
