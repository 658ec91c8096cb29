package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainContract = "piccolo/contract/v1"
	DomainPipeline = "piccolo/pipeline/v1"
	DomainPlan     = "piccolo/plan/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContractHash identifies a contract by its canonical content.
func ContractHash(c *StepContract) (string, error) {
	canonical, err := Canonicalize(c)
	if err != nil {
		return "", fmt.Errorf("ContractHash: %w", err)
	}
	return hashWithDomain(DomainContract, canonical), nil
}

// PipelineHash identifies a pipeline definition. Two pipelines with the same
// steps and parameters hash equal regardless of key order or formatting.
func PipelineHash(p *Pipeline) (string, error) {
	canonical, err := Canonicalize(p)
	if err != nil {
		return "", fmt.Errorf("PipelineHash: %w", err)
	}
	return hashWithDomain(DomainPipeline, canonical), nil
}

// PlanHash identifies a compiled plan body given its canonical JSON.
func PlanHash(canonical []byte) string {
	return hashWithDomain(DomainPlan, canonical)
}

// MustPipelineHash is like PipelineHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPipelineHash(p *Pipeline) string {
	h, err := PipelineHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
