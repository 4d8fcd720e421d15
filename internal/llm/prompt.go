package llm

import (
	"fmt"
	"regexp"
	"strings"
)

const queryPromptTemplate = `You are an expert data analyst. Your task is to write a SQL query to answer a user's question about their data.

The data is available in a table named df.

Here is the schema of the table df:
%s

User's Question: "%s"

Instructions:
1. Write a single SQL SELECT statement against the table df that answers the question.
2. The statement's result set IS the answer; do not wrap it in DDL or multiple statements.
3. Use standard SQL accepted by DuckDB.
4. Do not include any explanation or prose.
5. Return the SQL as plain text, without any markdown formatting like ` + "```sql." + `
`

const suggestionsPromptTemplate = `Based on the following schema for a data table, please generate 3 interesting and diverse analytical questions that a user could ask.

Schema:
%s

Return the questions as a JSON list of strings. For example: ["Question 1?", "Question 2?", "Question 3?"]`

func buildQueryPrompt(schema, question string) string {
	return fmt.Sprintf(queryPromptTemplate, schema, question)
}

func buildSuggestionsPrompt(schema string) string {
	return fmt.Sprintf(suggestionsPromptTemplate, schema)
}

var codeFencePattern = regexp.MustCompile("```(?:sql|SQL)?\n?|```")

// stripCodeFences removes markdown fence artifacts the model emits despite
// the prompt instructions.
func stripCodeFences(text string) string {
	return strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
}
