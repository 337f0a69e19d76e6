package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ChangeBeforeBlurDoesNotValidate(t *testing.T) {
	tr := NewTracker(SignIn)
	assert.Empty(t, tr.Change("username", "a", Form{}))
	assert.True(t, tr.Valid())
	assert.False(t, tr.Touched("username"))
}

func TestTracker_BlurThenChange(t *testing.T) {
	tr := NewTracker(SignIn)

	assert.Equal(t, "Mínimo 3 caracteres", tr.Blur("username", "ab", Form{}))
	assert.True(t, tr.Touched("username"))
	assert.Equal(t, map[string]string{"username": "Mínimo 3 caracteres"}, tr.Errors())

	assert.Empty(t, tr.Change("username", "abc", Form{}))
	assert.True(t, tr.Valid())

	assert.Equal(t, MsgRequired, tr.Change("username", "", Form{}))
}

func TestTracker_CrossFieldUsesForm(t *testing.T) {
	tr := NewTracker(SignUp)
	form := Form{"password": "segredo1"}
	assert.Equal(t, MsgPasswordMatch, tr.Blur("confirmPassword", "segredo2", form))
	assert.Empty(t, tr.Change("confirmPassword", "segredo1", form))
}

func TestTracker_SubmitTouchesEverything(t *testing.T) {
	tr := NewTracker(SignIn)
	assert.False(t, tr.Submit(Form{"username": "maria"}))
	assert.True(t, tr.Touched("password"))
	assert.Equal(t, map[string]string{"password": MsgRequired}, tr.Errors())

	assert.True(t, tr.Submit(Form{"username": "maria", "password": "segredo1"}))
	assert.Empty(t, tr.Errors())
}

func TestTracker_ClearAndReset(t *testing.T) {
	tr := NewTracker(SignIn)
	tr.Blur("username", "", Form{})
	tr.Blur("password", "", Form{})

	tr.ClearField("username")
	assert.Equal(t, map[string]string{"password": MsgRequired}, tr.Errors())

	tr.Clear()
	assert.Empty(t, tr.Errors())
	assert.True(t, tr.Touched("password"))

	tr.SetErrors(map[string]string{"username": "Usuário ou senha inválidos"})
	assert.False(t, tr.Valid())

	tr.Reset()
	assert.Empty(t, tr.Errors())
	assert.False(t, tr.Touched("password"))
	assert.Empty(t, tr.Change("password", "", Form{}))
}
