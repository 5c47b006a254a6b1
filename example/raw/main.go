package main

import (
	"fmt"

	"github.com/lixenwraith/rtlog"
)

// TestPayload defines a struct for testing composite value rendering.
type TestPayload struct {
	RequestID uint64
	User      string
	Metrics   map[string]float64
}

func main() {
	fmt.Println("--- Logger Raw Values Test ---")

	byteRecord := []byte("binary\ndata\twith\x00null")
	structRecord := TestPayload{
		RequestID: 9223372036854775807,
		User:      "test_user",
		Metrics: map[string]float64{
			"latency_ms":  15.7,
			"cpu_percent": 88.2,
		},
	}

	// [1] Values as they are: scalars printed, composites dumped
	fmt.Println("\n[1] LogValues with default settings")
	logger1, err := rtlog.NewBuilder().
		Sink(rtlog.SinkSynchronized).
		BufferSize(512).
		Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return
	}
	logger1.LogValues(rtlog.SeverityInfo, "Raw", "Byte Record ->", byteRecord)
	logger1.LogValues(rtlog.SeverityInfo, "Raw", "Struct Record ->", structRecord)
	logger1.LogDirect(rtlog.SeverityInfo, "Raw", string(byteRecord))
	logger1.Shutdown()

	// [2] Same records with non-printable bytes hex-encoded
	fmt.Println("\n[2] LogValues with sanitize=true")
	logger2, err := rtlog.NewBuilder().
		Sink(rtlog.SinkSynchronized).
		BufferSize(512).
		Sanitize(true).
		Build()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return
	}
	logger2.LogValues(rtlog.SeverityInfo, "Raw", "Byte Record ->", byteRecord)
	logger2.LogValues(rtlog.SeverityInfo, "Raw", "Struct Record ->", structRecord)
	logger2.LogDirect(rtlog.SeverityInfo, "Raw", string(byteRecord))
	logger2.Shutdown()

	fmt.Println("\n--- Test Complete ---")
}
