package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"genotasks/internal/config"
	"genotasks/internal/models"
)

func useTempConfig(t *testing.T) {
	t.Helper()
	c := config.DefaultConfig()
	c.Storage.DBPath = filepath.Join(t.TempDir(), "genotasks.db")
	c.Replica.NodeID = "cli-test"
	cfg = c
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWeekCmd(t *testing.T) {
	cmd := weekCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"2024-08-05"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "Sem 32 2024" {
		t.Fatalf("week = %q", got)
	}

	cmd = weekCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"05/08/2024"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestImportThenExport(t *testing.T) {
	useTempConfig(t)
	dir := t.TempDir()

	doc := "SEMANA: Sem 32 2024\n" +
		"ÁREA: Producción\n" +
		"Tarea: Cartel\n" +
		"Solicitante: Marta\n" +
		"Responsable: Diseño Gráfico\n" +
		"Prioridad: Alta\n" +
		"Estado: Activa\n" +
		"Entrega: Pendiente\n" +
		"----\n"
	src := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(src, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	imp := importCmd()
	imp.SetContext(context.Background())
	imp.SetOut(io.Discard)
	imp.SetArgs([]string{src})
	if err := imp.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}

	exp := exportCmd()
	exp.SetContext(context.Background())
	exp.SetOut(io.Discard)
	exp.SetArgs([]string{"--week", "Sem 32 2024", "--out", dir})
	if err := exp.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Tareas_GenoTasks_Sem_32_2024.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Tarea: Cartel") ||
		!strings.Contains(string(data), "Prioridad: "+string(models.PriorityHigh)) {
		t.Fatalf("export:\n%s", data)
	}
}
