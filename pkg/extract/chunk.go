package extract

import (
	"strings"
	"unicode"

	"github.com/tapestry-analytics/tapestry/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkText splits document text into token-bounded chunks along sentence
// boundaries. Sentences are never split mid-way; a chunk grows until adding
// the next sentence would exceed maxTokens. A single sentence longer than
// maxTokens becomes its own chunk.
func ChunkText(text string, encoder string, maxTokens int) ([]common.Chunk, error) {
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []common.Chunk
	chunkStart := -1
	chunkEnd := -1

	flushChunk := func() {
		if chunkStart < 0 || chunkEnd <= chunkStart {
			return
		}
		chunks = append(chunks, common.Chunk{
			Index: len(chunks),
			Text:  strings.TrimSpace(strings.Join(sentences[chunkStart:chunkEnd], " ")),
		})
		chunkStart = -1
		chunkEnd = -1
	}

	for i := range sentences {
		if chunkStart < 0 {
			chunkStart = i
			chunkEnd = i + 1
			continue
		}

		testText := strings.Join(sentences[chunkStart:i+1], " ")
		if len(enc.Encode(testText, nil, nil)) <= maxTokens {
			chunkEnd = i + 1
		} else {
			flushChunk()
			chunkStart = i
			chunkEnd = i + 1
		}
	}
	flushChunk()

	return chunks, nil
}

func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// paragraph break ends the running sentence
			flush()
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)

			if strings.HasSuffix(sentence, ".") ||
				strings.HasSuffix(sentence, "!") ||
				strings.HasSuffix(sentence, "?") {
				flush()
			}
		}
	}
	flush()

	return sentences
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] == '.' || line[i] == '!' || line[i] == '?' {
			// "1. item" style listings are not sentence ends
			if i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) && line[i+1] == ' ' {
				continue
			}

			j := i + 1
			for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
				current.WriteByte(line[j])
				j++
			}
			for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
				line[j] == ']' || line[j] == '}') {
				current.WriteByte(line[j])
				j++
			}

			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
			i = j - 1
		}
	}

	if remaining := strings.TrimSpace(current.String()); remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}
