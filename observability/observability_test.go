package observability

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupObsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")
	if err := Init(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInit_CreatesAllTables(t *testing.T) {
	db := setupObsDB(t)
	for _, table := range []string{
		"worker_heartbeats", "metrics_timeseries", "metrics_metadata",
		"audit_log", "business_event_logs", "http_request_logs",
		"_observability_metadata",
	} {
		var count int
		db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if count != 1 {
			t.Fatalf("table %s not found", table)
		}
	}
}

// --- MetricsManager ---

func TestMetricsManager_RecordAndQuery(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)

	mm.Record(&Metric{
		Name:      MetricIngestDurationMs,
		Timestamp: time.Now(),
		Value:     42.5,
		Unit:      "ms",
		Labels:    map[string]string{"source": "notes.txt"},
	})
	mm.RecordSimple(MetricChunksIndexedCount, 10, "count")

	// Close flushes the buffer and stops the flush loop; a fresh
	// manager does the querying.
	mm.Close()
	mm2 := NewMetricsManager(db, 100, time.Hour)
	defer mm2.Close()

	metrics, err := mm2.Query(MetricIngestDurationMs, nil, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 1 {
		t.Fatalf("ingest metric count: got %d", len(metrics))
	}
	if metrics[0].Value != 42.5 {
		t.Fatalf("value: got %f", metrics[0].Value)
	}
	if metrics[0].Labels["source"] != "notes.txt" {
		t.Fatalf("labels: got %v", metrics[0].Labels)
	}

	all, err := mm2.Query("", nil, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all metrics count: got %d", len(all))
	}
}

func TestMetricsManager_QueryWithTimeRange(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)

	now := time.Now()
	mm.Record(&Metric{Name: "m1", Timestamp: now.Add(-2 * time.Hour), Value: 1, Unit: "x"})
	mm.Record(&Metric{Name: "m1", Timestamp: now, Value: 2, Unit: "x"})
	mm.Close()

	mm2 := NewMetricsManager(db, 100, time.Hour)
	defer mm2.Close()

	start := now.Add(-time.Hour)
	metrics, err := mm2.Query("m1", &start, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 1 {
		t.Fatalf("time-filtered count: got %d", len(metrics))
	}
}

func TestMetricsManager_Cleanup(t *testing.T) {
	db := setupObsDB(t)
	mm := NewMetricsManager(db, 100, time.Hour)

	mm.Record(&Metric{Name: "stale", Timestamp: time.Now().Add(-40 * 24 * time.Hour), Value: 1, Unit: "x"})
	mm.Record(&Metric{Name: "fresh", Timestamp: time.Now(), Value: 2, Unit: "x"})
	mm.Close()

	mm2 := NewMetricsManager(db, 100, time.Hour)
	defer mm2.Close()

	deleted, err := mm2.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted: got %d, want the stale row only", deleted)
	}
}

// --- HeartbeatWriter ---

func TestCollectRuntimeMetrics(t *testing.T) {
	m := CollectRuntimeMetrics()
	if m.GoroutinesCount <= 0 || m.MemoryAllocMB <= 0 {
		t.Fatalf("implausible runtime metrics: %+v", m)
	}
}

func TestHeartbeatWriter_WriteHeartbeat(t *testing.T) {
	db := setupObsDB(t)
	hw := NewHeartbeatWriter(db, "mcpstudio", time.Minute)

	if err := hw.WriteHeartbeat(); err != nil {
		t.Fatal(err)
	}

	var workerName string
	var goroutines int
	db.QueryRow("SELECT worker_name, goroutines_count FROM worker_heartbeats LIMIT 1").
		Scan(&workerName, &goroutines)
	if workerName != "mcpstudio" {
		t.Fatalf("worker_name: got %q", workerName)
	}
	if goroutines <= 0 {
		t.Fatal("goroutines_count must be positive")
	}
}

func TestHeartbeatWriter_StartStop(t *testing.T) {
	db := setupObsDB(t)
	hw := NewHeartbeatWriter(db, "loop_worker", 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	hw.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	cancel()
	hw.Stop()

	var count int
	db.QueryRow("SELECT COUNT(*) FROM worker_heartbeats WHERE worker_name='loop_worker'").Scan(&count)
	if count < 2 {
		t.Fatalf("heartbeat count: got %d, want >= 2", count)
	}
}

func TestCleanupHeartbeats(t *testing.T) {
	db := setupObsDB(t)

	oldTs := time.Now().Add(-40 * 24 * time.Hour).Unix()
	db.Exec(`INSERT INTO worker_heartbeats (worker_name, hostname, worker_pid, timestamp,
		goroutines_count, memory_alloc_mb, memory_sys_mb, gc_count)
		VALUES ('retired', 'host', 1, ?, 1, 1.0, 1.0, 1)`, oldTs)

	deleted, err := CleanupHeartbeats(context.Background(), db, 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted: got %d", deleted)
	}
}

// --- AuditLogger ---

func TestAuditLogger_LogSync(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100)
	defer al.Close()

	entry := &AuditEntry{
		ComponentName: "ingest",
		OperationType: "index_source",
		Status:        "success",
		DurationMs:    42,
	}
	if err := al.Log(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	if entry.EntryID == "" {
		t.Fatal("entry_id not generated")
	}

	var component string
	db.QueryRow("SELECT component_name FROM audit_log WHERE entry_id=?", entry.EntryID).Scan(&component)
	if component != "ingest" {
		t.Fatalf("component: got %q", component)
	}
}

func TestAuditLogger_LogAsync(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100)

	al.LogAsync(&AuditEntry{
		ComponentName: "generate",
		OperationType: "definition_generate",
	})
	al.Close()

	var count int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE component_name='generate'").Scan(&count)
	if count != 1 {
		t.Fatalf("async count after Close: got %d", count)
	}
}

func TestAuditLogger_NewAuditEntry(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100)
	defer al.Close()

	ok := al.NewAuditEntry("studio", "export", map[string]string{"format": "yaml"}, "done", nil, 100*time.Millisecond)
	if ok.Status != "success" {
		t.Fatalf("status: got %q", ok.Status)
	}
	if ok.Parameters == "" || ok.Result == "" {
		t.Fatalf("params/result not marshalled: %+v", ok)
	}
	if ok.DurationMs != 100 {
		t.Fatalf("duration_ms: got %d", ok.DurationMs)
	}

	failed := al.NewAuditEntry("studio", "export", nil, nil, errors.New("boom"), 50*time.Millisecond)
	if failed.Status != "error" {
		t.Fatalf("status: got %q", failed.Status)
	}
	if failed.ErrorMessage != "boom" {
		t.Fatalf("error_message: got %q", failed.ErrorMessage)
	}
}

func TestAuditLogger_Query(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100)

	al.Log(context.Background(), &AuditEntry{ComponentName: "ingest", OperationType: "index_source", Status: "success"})
	al.Log(context.Background(), &AuditEntry{ComponentName: "generate", OperationType: "definition_generate", Status: "error"})

	comp := "ingest"
	entries, err := al.Query(context.Background(), &AuditFilter{ComponentName: &comp, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ComponentName != "ingest" {
		t.Fatalf("filtered entries: %+v", entries)
	}

	al.Close()
}

func TestAuditLogger_Cleanup(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100)

	al.Log(context.Background(), &AuditEntry{
		ComponentName: "stale",
		OperationType: "op",
		Timestamp:     time.Now().Add(-40 * 24 * time.Hour),
	})
	al.Log(context.Background(), &AuditEntry{ComponentName: "fresh", OperationType: "op"})

	deleted, err := al.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Fatalf("deleted: got %d", deleted)
	}

	al.Close()
}

func TestAuditLogger_WithIDGenerator(t *testing.T) {
	db := setupObsDB(t)
	al := NewAuditLogger(db, 100, WithAuditIDGenerator(func() string { return "fixed_id" }))
	defer al.Close()

	entry := &AuditEntry{ComponentName: "studio", OperationType: "op"}
	al.Log(context.Background(), entry)
	if entry.EntryID != "fixed_id" {
		t.Fatalf("custom ID: got %q", entry.EntryID)
	}
}

// --- EventLogger ---

func TestEventLogger_LogEvent(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db)

	el.LogEvent(context.Background(), BusinessEvent{
		EventType:   "user_registered",
		ServiceName: "mcpstudio",
		EntityType:  "user",
		EntityID:    "usr_1",
		Action:      "register",
		Success:     true,
	})

	var eventType, action string
	db.QueryRow("SELECT event_type, action FROM business_event_logs LIMIT 1").Scan(&eventType, &action)
	if eventType != "user_registered" || action != "register" {
		t.Fatalf("event: %q/%q", eventType, action)
	}
}

func TestEventLogger_WithIDGenerator(t *testing.T) {
	db := setupObsDB(t)
	el := NewEventLogger(db, WithEventIDGenerator(func() string { return "evt_custom" }))

	el.LogEvent(context.Background(), BusinessEvent{
		EventType:   "mcp_created",
		ServiceName: "mcpstudio",
		Action:      "create",
		Success:     true,
	})

	var eventID string
	db.QueryRow("SELECT event_id FROM business_event_logs LIMIT 1").Scan(&eventID)
	if eventID != "evt_custom" {
		t.Fatalf("custom event_id: got %q", eventID)
	}
}

// --- Retention cleanup ---

func TestCleanup_Retention(t *testing.T) {
	db := setupObsDB(t)

	oldTs := time.Now().Add(-40 * 24 * time.Hour).Unix()
	db.Exec("INSERT INTO http_request_logs (method, path, created_at) VALUES ('GET', '/api/mcp', ?)", oldTs)
	db.Exec("INSERT INTO business_event_logs (event_id, event_type, service_name, action, success, created_at) VALUES ('e1', 'mcp_created', 'mcpstudio', 'create', 1, ?)", oldTs)

	if err := Cleanup(context.Background(), db, RetentionConfig{
		HTTPLogsDays:  30,
		EventLogsDays: 30,
	}); err != nil {
		t.Fatal(err)
	}

	var httpCount, eventCount int
	db.QueryRow("SELECT COUNT(*) FROM http_request_logs").Scan(&httpCount)
	db.QueryRow("SELECT COUNT(*) FROM business_event_logs").Scan(&eventCount)
	if httpCount != 0 || eventCount != 0 {
		t.Fatalf("rows left after cleanup: http=%d events=%d", httpCount, eventCount)
	}
}

func TestCleanup_ZeroDaysDisablesRetention(t *testing.T) {
	db := setupObsDB(t)

	oldTs := time.Now().Add(-40 * 24 * time.Hour).Unix()
	db.Exec("INSERT INTO http_request_logs (method, path, created_at) VALUES ('GET', '/api/mcp', ?)", oldTs)

	if err := Cleanup(context.Background(), db, RetentionConfig{HTTPLogsDays: 0}); err != nil {
		t.Fatal(err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM http_request_logs").Scan(&count)
	if count != 1 {
		t.Fatalf("days=0 must not delete: got %d rows", count)
	}
}
