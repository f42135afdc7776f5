package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chemistryai/answermark/internal/content"
)

// Instruction is the fixed task description sent ahead of the document
// content. The para_id rules mirror how answers are resolved on reinsertion:
// every assignment must point at the identifier of exactly one question
// paragraph.
const Instruction = `You are an expert at identifying answer keys in educational documents.
Given the following document content, identify the paragraphs containing questions, and their corresponding answer keys.
Output a JSON object with an "answer_keys" list; each entry has 'para_id' and 'answer' fields. The para_id corresponds to the index of the QUESTION in the exam paper, and the answer is the text of the answer key.
Some questions may span multiple paragraphs; the para_id for that answer should point to the beginning of the question.
Some answers may correspond to multiple questions, especially for multiple choice questions. In such cases, list each question's para_id separately with the corresponding answer to that question.
For questions that contain sub-questions, break down the answer for each sub-question and list the para_id of each sub-question.
There might be multiple exams in the document. Identify the answer keys for all exams present.`

// AnswerKeySchema is the JSON schema constraining structured provider
// responses to the AnswerKeySet shape.
const AnswerKeySchema = `{
  "type": "object",
  "properties": {
    "answer_keys": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "para_id": {"type": "integer", "description": "Paragraph ID where the question is located"},
          "answer": {"type": "string", "description": "The extracted answer key text"}
        },
        "required": ["para_id", "answer"]
      }
    }
  },
  "required": ["answer_keys"]
}`

// BuildPrompt serializes the record sequence and appends it to the task
// instruction.
func BuildPrompt(records []content.Record) (string, error) {
	payload, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal records: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(Instruction)
	sb.WriteString("\n\nDocument content:\n")
	sb.Write(payload)
	return sb.String(), nil
}
