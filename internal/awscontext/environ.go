package awscontext

import "os"

// isolatedVars are cleared for the life of a scope. Variables ending in
// _FILE are pointed at os.DevNull instead of being unset so the SDK cannot
// fall back to the files under ~/.aws.
var isolatedVars = []envVar{
	{name: "AWS_ACCESS_KEY_ID"},
	{name: "AWS_SECRET_ACCESS_KEY"},
	{name: "AWS_SESSION_TOKEN"},
	{name: "AWS_SHARED_CREDENTIALS_FILE", file: true},
	{name: "AWS_CONFIG_FILE", file: true},
	{name: "AWS_DEFAULT_REGION"},
	{name: "AWS_REGION"},
	{name: "AWS_PROFILE"},
}

type envVar struct {
	name string
	file bool
}

type savedValue struct {
	value string
	set   bool
}

// savedEnv is a snapshot of the isolated variables taken before a scope
// modified them.
type savedEnv map[string]savedValue

// clearEnv snapshots and clears the isolated variables.
func clearEnv() (savedEnv, error) {
	saved := make(savedEnv, len(isolatedVars))
	for _, v := range isolatedVars {
		value, set := os.LookupEnv(v.name)
		saved[v.name] = savedValue{value: value, set: set}
	}
	for _, v := range isolatedVars {
		var err error
		if v.file {
			err = os.Setenv(v.name, os.DevNull)
		} else {
			err = os.Unsetenv(v.name)
		}
		if err != nil {
			saved.restore()
			return nil, err
		}
	}
	return saved, nil
}

// restore puts every snapshotted variable back exactly as it was: set
// variables get their old value, unset ones are removed.
func (s savedEnv) restore() {
	for name, v := range s {
		if v.set {
			_ = os.Setenv(name, v.value)
		} else {
			_ = os.Unsetenv(name)
		}
	}
}

func setEnv(pairs map[string]string) error {
	for name, value := range pairs {
		if value == "" {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return err
		}
	}
	return nil
}
