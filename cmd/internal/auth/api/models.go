package authapi

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type userOKResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
}

type meResponse struct {
	OK       bool   `json:"ok"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

type deleteAccountResponse struct {
	OK      bool `json:"ok"`
	Deleted bool `json:"deleted"`
}

type upsertResponse struct {
	OK       bool   `json:"ok"`
	Created  bool   `json:"created"`
	Updated  bool   `json:"updated"`
	Username string `json:"username"`
}
