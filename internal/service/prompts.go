package service

const captureSystemPrompt = `You are an expert requirements analyst. Analyze the conversation to extract:
1. Tech stack preferences
2. Key features and functionality
3. Timeline expectations
4. Budget range
5. Project scope and complexity

IMPORTANT: You MUST return ONLY valid JSON, no markdown, no explanations, no code blocks. Return a JSON object with these fields:
{
  "techStack": ["tech1", "tech2"],
  "features": ["feature1", "feature2"],
  "timeline": "timeline description",
  "budget": "budget description",
  "scope": "scope description"
}

Return ONLY the JSON object, nothing else.`

const captureInstruction = "Extract and structure the project requirements from this conversation. " +
	"Return ONLY valid JSON, no markdown, no explanations, no code blocks."

// personaPrompt - системная инструкция собеседника, который помогает заказчику сформулировать задачу.
func personaPrompt(stackPolicy string) string {
	return `You are a friendly project requirements specialist. Help the client articulate their tech project needs through natural conversation.

IMPORTANT: ` + stackPolicy + `

Ask clarifying questions about:
- What they want to build
- Timeline expectations
- Budget considerations
- Key features and functionality

Be respectful if they have strong technology preferences. Be conversational and helpful.`
}
