package sqlite

// sqliteKeywords are SQLite's reserved words, per the sqlite.org keyword
// list. SQLite accepts many of these unquoted in some positions; quoting is
// always safe.
var sqliteKeywords = []string{
	"abort",
	"action",
	"add",
	"after",
	"all",
	"alter",
	"and",
	"as",
	"asc",
	"autoincrement",
	"before",
	"begin",
	"between",
	"by",
	"cascade",
	"case",
	"cast",
	"check",
	"collate",
	"column",
	"commit",
	"conflict",
	"constraint",
	"create",
	"cross",
	"current_date",
	"current_time",
	"current_timestamp",
	"database",
	"default",
	"deferrable",
	"deferred",
	"delete",
	"desc",
	"distinct",
	"drop",
	"each",
	"else",
	"end",
	"escape",
	"except",
	"exclusive",
	"exists",
	"explain",
	"fail",
	"for",
	"foreign",
	"from",
	"full",
	"group",
	"having",
	"if",
	"ignore",
	"immediate",
	"in",
	"index",
	"indexed",
	"initially",
	"inner",
	"insert",
	"instead",
	"intersect",
	"into",
	"is",
	"isnull",
	"join",
	"key",
	"left",
	"like",
	"limit",
	"match",
	"natural",
	"no",
	"not",
	"notnull",
	"null",
	"of",
	"offset",
	"on",
	"or",
	"order",
	"outer",
	"plan",
	"pragma",
	"primary",
	"query",
	"raise",
	"references",
	"regexp",
	"reindex",
	"release",
	"rename",
	"replace",
	"restrict",
	"returning",
	"right",
	"rollback",
	"row",
	"savepoint",
	"select",
	"set",
	"table",
	"temp",
	"temporary",
	"then",
	"to",
	"transaction",
	"trigger",
	"union",
	"unique",
	"update",
	"using",
	"vacuum",
	"values",
	"view",
	"virtual",
	"when",
	"where",
	"with",
	"without",
}
