package classifier

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"regexp"
	"strings"
)

// Special token IDs used when the vocabulary does not define them.
const (
	padID int64 = 0
	unkID int64 = 1
	clsID int64 = 2
	sepID int64 = 3

	hashBuckets = 30000
)

// DefaultMaxTokens is the sequence length the model expects, including the
// leading [CLS] and trailing [SEP].
const DefaultMaxTokens = 64

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:[.,/@_\-][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)

// Token is one word of the input with its byte span in the source text.
type Token struct {
	Text  string
	Start int
	End   int
}

// Encoding is a tokenized, padded model input. Position 0 is [CLS], so
// Tokens[i] sits at sequence position i+1.
type Encoding struct {
	IDs    []int64
	Mask   []int64
	Tokens []Token
}

// Tokenizer maps words to vocabulary IDs. Without a vocabulary it hashes
// words into a fixed range.
type Tokenizer struct {
	vocab  map[string]int64
	maxLen int
}

// NewTokenizer returns a hashing tokenizer.
func NewTokenizer(maxLen int) *Tokenizer {
	if maxLen < 3 {
		maxLen = DefaultMaxTokens
	}
	return &Tokenizer{maxLen: maxLen}
}

// LoadVocab reads one token per line; the line number is the token ID.
func (t *Tokenizer) LoadVocab(r io.Reader) error {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimSpace(sc.Text())
		if tok != "" {
			if _, dup := vocab[tok]; !dup {
				vocab[tok] = id
			}
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read vocab: %w", err)
	}
	if len(vocab) == 0 {
		return fmt.Errorf("read vocab: empty vocabulary")
	}
	t.vocab = vocab
	return nil
}

// MaxLen returns the padded sequence length.
func (t *Tokenizer) MaxLen() int {
	return t.maxLen
}

// Encode tokenizes text and pads it to MaxLen.
func (t *Tokenizer) Encode(text string) Encoding {
	words := wordPattern.FindAllStringIndex(text, -1)
	if limit := t.maxLen - 2; len(words) > limit {
		words = words[:limit]
	}

	enc := Encoding{
		IDs:    make([]int64, t.maxLen),
		Mask:   make([]int64, t.maxLen),
		Tokens: make([]Token, 0, len(words)),
	}
	enc.IDs[0], enc.Mask[0] = t.special("[CLS]", clsID), 1
	for i, w := range words {
		word := text[w[0]:w[1]]
		enc.Tokens = append(enc.Tokens, Token{Text: word, Start: w[0], End: w[1]})
		enc.IDs[i+1], enc.Mask[i+1] = t.id(word), 1
	}
	sep := len(words) + 1
	enc.IDs[sep], enc.Mask[sep] = t.special("[SEP]", sepID), 1
	for i := sep + 1; i < t.maxLen; i++ {
		enc.IDs[i] = t.special("[PAD]", padID)
	}
	return enc
}

func (t *Tokenizer) special(name string, fallback int64) int64 {
	if id, ok := t.vocab[name]; ok {
		return id
	}
	return fallback
}

func (t *Tokenizer) id(word string) int64 {
	word = strings.ToLower(word)
	if t.vocab != nil {
		if id, ok := t.vocab[word]; ok {
			return id
		}
		return t.special("[UNK]", unkID)
	}
	h := fnv.New32a()
	h.Write([]byte(word))
	return int64(h.Sum32()%hashBuckets) + sepID + 1
}
