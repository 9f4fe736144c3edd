package cli

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadSeries(t *testing.T) {
	t.Run("header with dropped timestamp column", func(t *testing.T) {
		cols, err := readSeries(strings.NewReader("Time,High,Low,Close\n2024-01-01,3,1,2\n2024-01-02,4,2,\n"))
		if err != nil {
			t.Fatalf("failed to read series: %v", err)
		}
		if _, ok := cols["time"]; ok {
			t.Error("expected timestamp column to be dropped")
		}
		if !reflect.DeepEqual(cols["high"], []float64{3, 4}) {
			t.Errorf("unexpected high column %v", cols["high"])
		}
		if cols["close"][0] != 2 {
			t.Errorf("expected close[0] 2, got %v", cols["close"][0])
		}
		if !math.IsNaN(cols["close"][1]) {
			t.Errorf("expected empty cell to read as NaN, got %v", cols["close"][1])
		}
	})

	t.Run("headerless single column", func(t *testing.T) {
		cols, err := readSeries(strings.NewReader("1\n2\n3\n"))
		if err != nil {
			t.Fatalf("failed to read series: %v", err)
		}
		if !reflect.DeepEqual(cols["close"], []float64{1, 2, 3}) {
			t.Errorf("unexpected close column %v", cols["close"])
		}
	})

	t.Run("headerless multi column", func(t *testing.T) {
		if _, err := readSeries(strings.NewReader("1,2\n3,4\n")); err == nil {
			t.Error("expected error for headerless multi column input")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := readSeries(strings.NewReader("")); err == nil {
			t.Error("expected error for empty input")
		}
	})
}

func TestWriteOutputs(t *testing.T) {
	var buf bytes.Buffer
	err := writeOutputs(&buf, map[string][]float64{
		"upper": {math.NaN(), 2.5},
		"lower": {math.NaN(), 0.5},
	})
	if err != nil {
		t.Fatalf("failed to write outputs: %v", err)
	}
	expected := "index,lower,upper\n0,,\n1,0.5,2.5\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestComputeCommand(t *testing.T) {
	input := writeFile(t, "prices.csv", "close\n1\n2\n3\n4\n5\n")

	out, err := run(t, "compute", "sma", "--input", input, "--period", "2")
	if err != nil {
		t.Fatalf("compute sma failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "index,sma" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[5] != "4,4.5" {
		t.Errorf("unexpected last row %q", lines[5])
	}

	out, err = run(t, "compute", "ema", "--input", input, "--period", "2", "--json")
	if err != nil {
		t.Fatalf("compute ema failed: %v", err)
	}
	var res struct {
		Indicator string               `json:"indicator"`
		Length    int                  `json:"length"`
		Outputs   map[string][]float64 `json:"outputs"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if res.Indicator != "ema" || res.Length != 5 || len(res.Outputs["ema"]) != 5 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestComputeCommandMAVP(t *testing.T) {
	input := writeFile(t, "prices.csv", "close,periods\n10,2\n20,2\n30,2\n40,2\n50,2\n")

	out, err := run(t, "compute", "mavp", "--input", input, "--periods-column", "periods")
	if err != nil {
		t.Fatalf("compute mavp failed: %v", err)
	}
	if !strings.Contains(out, "4,45\n") {
		t.Errorf("expected row 4,45 in %q", out)
	}

	if _, err := run(t, "compute", "mavp", "--input", input, "--periods-column", "nope"); err == nil {
		t.Error("expected error for unknown periods column")
	}
}

func TestComputeCommandErrors(t *testing.T) {
	input := writeFile(t, "prices.csv", "close\n1\n2\n")
	long := writeFile(t, "long.csv", "close\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n")

	tests := []struct {
		name string
		args []string
	}{
		{"insufficient data", []string{"compute", "sma", "--input", input, "--period", "5"}},
		{"unknown indicator", []string{"compute", "rsi", "--input", input}},
		{"missing indicator", []string{"compute"}},
		{"mama limits out of order", []string{"compute", "mama", "--input", long, "--fast-limit", "0.1", "--slow-limit", "0.3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestScriptCommand(t *testing.T) {
	input := writeFile(t, "prices.csv", "open,high,low,close,volume\n1,2,0,1,10\n2,3,1,2,10\n3,4,2,3,10\n4,5,3,4,10\n")
	src := writeFile(t, "double.star", `
n = config.get("factor", 1)
result = {"scaled": [c * n for c in close], "fast": sma(close, period=2)}
`)

	out, err := run(t, "script", src, "--input", input, "--set", "factor=2")
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "index,fast,scaled" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[4] != "3,3.5,8" {
		t.Errorf("unexpected last row %q", lines[4])
	}

	if _, err := run(t, "script", src, "--input", input, "--set", "broken"); err == nil {
		t.Error("expected error for malformed --set")
	}
}

func TestParseSets(t *testing.T) {
	conf, err := parseSets([]string{"n=3", "x=0.5", "on=true", "name=fast"})
	if err != nil {
		t.Fatalf("failed to parse sets: %v", err)
	}
	expected := map[string]interface{}{"n": 3, "x": 0.5, "on": true, "name": "fast"}
	if !reflect.DeepEqual(conf, expected) {
		t.Errorf("expected %v, got %v", expected, conf)
	}
}

func TestIndicatorsAndVersion(t *testing.T) {
	out, err := run(t, "indicators")
	if err != nil {
		t.Fatalf("indicators failed: %v", err)
	}
	if !strings.Contains(out, "NAME") || !strings.Contains(out, "ht_trendline") {
		t.Errorf("unexpected indicator listing %q", out)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if out != "overlap version dev\n" {
		t.Errorf("unexpected version output %q", out)
	}
}
