package validate

const emailProp = `"email": {"type": "string", "format": "email", "maxLength": 254}`

const passwordProp = `"password": {"type": "string", "minLength": 6, "maxLength": 128}`

const nameProp = `"name": {"type": "string", "maxLength": 128}`

// Request body schemas.
var (
	Register = MustCompile("register", `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {`+emailProp+`, `+passwordProp+`, `+nameProp+`}
	}`)

	Login = MustCompile("login", `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {`+emailProp+`, "password": {"type": "string", "maxLength": 128}}
	}`)

	Refresh = MustCompile("refresh", `{
		"type": "object",
		"required": ["email", "refreshToken"],
		"properties": {`+emailProp+`, "refreshToken": {"type": "string", "minLength": 1}}
	}`)

	APIKey = MustCompile("apikey", `{
		"type": "object",
		"required": ["email", "password", "ident"],
		"properties": {`+emailProp+`, "password": {"type": "string", "maxLength": 128},
			"ident": {"type": "string", "minLength": 1, "maxLength": 64}}
	}`)

	PasswordReset = MustCompile("password reset", `{
		"type": "object",
		"required": ["email", "url"],
		"properties": {`+emailProp+`, "url": {"type": "string", "pattern": "\\S"}}
	}`)

	PasswordChange = MustCompile("password change", `{
		"type": "object",
		"required": ["email", "password", "confirm", "token"],
		"properties": {`+emailProp+`, `+passwordProp+`,
			"confirm": {"type": "string", "maxLength": 128},
			"token": {"type": "string", "minLength": 1}}
	}`)

	CreateUser = MustCompile("create user", `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {`+emailProp+`, `+passwordProp+`, `+nameProp+`,
			"role": {"enum": ["user", "admin"]},
			"picture": {"type": "string", "maxLength": 1024}}
	}`)

	UpdateUser = MustCompile("update user", `{
		"type": "object",
		"properties": {`+emailProp+`, `+passwordProp+`, `+nameProp+`,
			"role": {"enum": ["user", "admin"]},
			"picture": {"type": "string", "maxLength": 1024}}
	}`)

	Faucet = MustCompile("faucet", `{
		"type": "object",
		"required": ["name", "email", "keys"],
		"properties": {
			"name": {"type": "string", "pattern": "^[a-z1-5.]{1,12}$"},
			`+emailProp+`,
			"first_name": {"type": "string", "maxLength": 128},
			"last_name": {"type": "string", "maxLength": 128},
			"wants_tokens": {"type": "boolean"},
			"keys": {
				"type": "object",
				"required": ["owner", "active"],
				"properties": {"owner": {"type": "string", "minLength": 1}, "active": {"type": "string", "minLength": 1}}
			}
		}
	}`)

	Push = MustCompile("push transaction", `{
		"type": "object",
		"required": ["actions"],
		"definitions": {
			"action": {
				"type": "object",
				"required": ["authorization"],
				"properties": {
					"account": {"type": "string"}, "code": {"type": "string"},
					"name": {"type": "string"}, "type": {"type": "string"},
					"authorization": {"type": "array", "items": {"type": "object"}}
				}
			}
		},
		"properties": {
			"actions": {"oneOf": [
				{"$ref": "#/definitions/action"},
				{"type": "array", "minItems": 1, "items": {"$ref": "#/definitions/action"}}
			]},
			"signatures": {"type": "array", "items": {"type": "string"}},
			"scope": {"type": "array", "items": {"type": "string"}}
		}
	}`)
)
