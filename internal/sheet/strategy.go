package sheet

import (
	"context"

	"juku-import/internal/model"
	"juku-import/internal/schema"
)

// ParsingStrategy turns an uploaded file into a validated preview.
type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) (*model.Preview, error)
	Validate(ctx context.Context, preview *model.Preview) error
}

type Pipeline struct {
	tokenizer Tokenizer
	parser    *Parser
	validator *Validator
}

// NewPipeline builds the pipeline for one import kind; the tokenizer is
// chosen from the file name.
func NewPipeline(s *schema.ImportSchema, filename string) (*Pipeline, error) {
	tokenizer, err := TokenizerFor(filename)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		tokenizer: tokenizer,
		parser:    NewParser(s),
		validator: NewValidator(s),
	}, nil
}

func (p *Pipeline) Parse(ctx context.Context, data []byte) (*model.Preview, error) {
	records, err := p.tokenizer.Tokenize(ctx, data)
	if err != nil {
		return nil, err
	}
	return p.parser.Parse(ctx, records)
}

func (p *Pipeline) Validate(ctx context.Context, preview *model.Preview) error {
	return p.validator.Validate(ctx, preview)
}

// Run parses and validates in one step.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*model.Preview, error) {
	preview, err := p.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(ctx, preview); err != nil {
		return nil, err
	}
	return preview, nil
}
