package db

type ActionAttempt struct {
	ID      int64
	Session string
	Term    string
	Code    string
	Params  string
	Ok      bool
	Message string
	Error   string
	Time    int64
}

type RegistrationWindow struct {
	Term  string
	Start int64
	Stop  int64
}
