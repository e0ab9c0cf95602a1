package sqlite

// AUTOINCREMENT keeps ids monotonic: SQLite never hands out an id that was
// used before, even after the row holding the largest id is deleted.
const createTodos = `CREATE TABLE todos (
    todo_id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL CHECK (title <> ''),
    description TEXT,
    completed INTEGER NOT NULL DEFAULT 0
);`

// schemaDDL lists all CREATE statements in dependency order.
var schemaDDL = []string{
	createTodos,
}
