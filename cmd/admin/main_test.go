package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeedArgs_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	a, err := parseSeedArgs([]string{"-config", "./config/local.yaml"})
	assert.NoError(t, err)
	assert.Equal(t, "./config/local.yaml", a.configPath)
	assert.Equal(t, "./fixtures/seed.yaml", a.fixturePath)
}

func TestParseSeedArgs_ConfigPathFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "./config/local.yaml")

	a, err := parseSeedArgs([]string{"-fixture", "./fixtures/demo.yaml"})
	assert.NoError(t, err)
	assert.Equal(t, "./config/local.yaml", a.configPath)
	assert.Equal(t, "./fixtures/demo.yaml", a.fixturePath)
}

func TestParseSeedArgs_MissingConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	_, err := parseSeedArgs(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_PATH")
}

func TestParseResetPasswordArgs_EmailFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", "./config/local.yaml")

	a, err := parseResetPasswordArgs([]string{"-email", "buyer@test.com"})
	assert.NoError(t, err)
	assert.Equal(t, "buyer@test.com", a.email)
	assert.Equal(t, "./config/local.yaml", a.configPath)
}

func TestParseResetPasswordArgs_MissingEmail(t *testing.T) {
	t.Setenv("CONFIG_PATH", "./config/local.yaml")

	_, err := parseResetPasswordArgs(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "-email")
}

func TestParseResetPasswordArgs_UnknownFlag(t *testing.T) {
	t.Setenv("CONFIG_PATH", "./config/local.yaml")

	_, err := parseResetPasswordArgs([]string{"-nope", "x"})
	assert.Error(t, err)
}

func TestParseDeployContractArgs(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	a, err := parseDeployContractArgs([]string{"-config", "./config/local.yaml"})
	assert.NoError(t, err)
	assert.Equal(t, "./config/local.yaml", a.configPath)

	_, err = parseDeployContractArgs(nil)
	assert.Error(t, err)
}
