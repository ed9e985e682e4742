package prompt

// DefaultTemplate rewrites a question/answer pair into a conversational
// question and a second-person answer.
const DefaultTemplate = `
From the provided text "Question : {question} Answer:{answer}" generate a question and answer to that question

<rules>
- Strictly ensure that 100% of the text "question" "answer" given is utilised in formation of response
- While ensuring flow use a language that is understandable and comprehendible to even a 5 year old
- In the Answer, ensure that it's written in a flow using second person pronouns e.g. "you" wherever relevant
- Frame the question as a person sharing/asking/enquiring/venting out their situation in 15–30 words
- The Answer should follow a Reddit-style sentence structuring
- Ensure that the answer have context for all the things mentioned such as stories or references
- Formulate response keeping in mind that you are a mental health chatbot Healo answering user queries (generated question) but dont explicitly mention that in the response
- Keep the Answer within 150-200 words while capturing all the content given in the text "question" "answer"
- Strictly give the Answer in a paragraph format only ensuring flow and connectivity in the content
- Frequently use "....", "-", ":" and other such grammatical components to make the structure of the answer
</rules>

Output Format:
Question:
Answer:
`
