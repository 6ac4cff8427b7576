package store

// Run queries
const (
	queryInsertRun = `
		INSERT INTO runs (id, pipeline, state, error, created_at)
		VALUES (?, ?, ?, ?, ?)`

	queryGetRun = `
		SELECT id, pipeline, state, error, created_at, started_at, finished_at
		FROM runs WHERE id = ?`

	querySetRunState = `UPDATE runs SET state = ? WHERE id = ?`

	queryMarkRunStarted = `
		UPDATE runs SET state = ?, started_at = COALESCE(started_at, now())
		WHERE id = ?`

	queryFinishRun = `
		UPDATE runs SET state = ?, error = ?, finished_at = now()
		WHERE id = ?`
)

// Task run queries
const (
	queryInsertTaskRun = `
		INSERT INTO task_runs (run_id, name, seq, state)
		VALUES (?, ?, ?, ?)`

	queryListTaskRuns = `
		SELECT run_id, name, state, output, error, worker, started_at, finished_at
		FROM task_runs WHERE run_id = ? ORDER BY seq`

	queryMarkTaskRunning = `
		UPDATE task_runs SET state = 'running', worker = ?, started_at = now()
		WHERE run_id = ? AND name = ?`

	queryFinishTaskRun = `
		UPDATE task_runs SET state = ?, output = ?, error = ?, finished_at = now()
		WHERE run_id = ? AND name = ?`
)
