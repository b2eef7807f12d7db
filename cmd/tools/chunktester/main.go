// chunktester replays a reply through the chunk segmenter, printing each
// progress record as it would reach the client. Useful for tuning the split
// behavior without a model in the loop.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/caseprep/interview-live/internal/segment"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	text := flag.String("text", "", "reply text to segment (reads stdin when empty)")
	deltaWords := flag.Int("delta-words", 3, "words per simulated stream delta")
	flag.Parse()

	input := *text
	if input == "" {
		data, err := readStdin()
		if err != nil {
			log.Fatalf("read stdin: %v", err)
		}
		input = data
	}
	if strings.TrimSpace(input) == "" {
		flag.Usage()
		log.Fatal("provide -text or pipe text on stdin")
	}

	seg := segment.New()
	for _, delta := range deltas(input, *deltaWords) {
		event := seg.Push(delta)
		printEvent(delta, event)
	}
	printEvent("<flush>", seg.Flush())
}

// deltas slices the input into word groups, keeping trailing whitespace so
// the reassembled text matches the original.
func deltas(input string, wordsPerDelta int) []string {
	if wordsPerDelta < 1 {
		wordsPerDelta = 1
	}

	words := strings.SplitAfter(input, " ")
	var out []string
	for i := 0; i < len(words); i += wordsPerDelta {
		end := i + wordsPerDelta
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], ""))
	}
	return out
}

func printEvent(delta string, event segment.Event) {
	state, err := json.Marshal(map[string]any{
		"chunkId":     event.ChunkID,
		"hasNewChunk": event.NewChunk != nil,
		"first":       event.First,
		"last":        event.Last,
	})
	if err != nil {
		log.Fatalf("marshal event: %v", err)
	}
	fmt.Printf("delta=%-30q %s\n", delta, state)
	if event.NewChunk != nil {
		fmt.Printf("  chunk %d: %q\n", event.NewChunk.Index, event.NewChunk.Text)
	}
}

func readStdin() (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	return sb.String(), scanner.Err()
}
