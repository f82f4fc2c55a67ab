package emailcheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"invoice-pipeline/internal/models"
)

func TestFinalStatus_StageErrorWinsOverZeroedCounters(t *testing.T) {
	got := finalStatus(0, 0, errors.New("mailbox dial failed"))
	assert.Equal(t, models.RunStatusError, got)
}

func TestFinalStatus_NoStageErrorAndNoMessageErrorsIsSuccess(t *testing.T) {
	got := finalStatus(5, 0, nil)
	assert.Equal(t, models.RunStatusSuccess, got)
}

func TestFinalStatus_PartialWhenSomeMessagesProcessedDespiteErrors(t *testing.T) {
	got := finalStatus(3, 2, nil)
	assert.Equal(t, models.RunStatusPartial, got)
}

func TestFinalStatus_ErrorWhenNoneProcessedAndMessageErrorsPresent(t *testing.T) {
	got := finalStatus(0, 2, nil)
	assert.Equal(t, models.RunStatusError, got)
}
